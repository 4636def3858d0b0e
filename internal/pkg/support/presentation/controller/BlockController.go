package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	repoAdapter "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/adapter"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// CreateBlockController is the admin endpoint recording a moderation block.
// Authorization happens in the admin middleware; the matching consequences
// (eviction from active sessions) happen here.
type CreateBlockController struct {
	UC *usecase.CreateBlockUseCase
}

func NewCreateBlockController(pool *pgxpool.Pool, transports []nport.Transport, log *logger.Logger) *CreateBlockController {
	repo := repoAdapter.NewPgSupportRepository(pool)
	forceEnd := usecase.NewForceEndSessionsUseCase(repo, transports, log)
	return &CreateBlockController{UC: usecase.NewCreateBlockUseCase(repo, forceEnd, log)}
}

type createBlockRequest struct {
	SubjectID string     `json:"subject_id" binding:"required"`
	TargetID  *string    `json:"target_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (h *CreateBlockController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createBlockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		id, err := h.UC.Execute(ctx, usecase.CreateBlockInput{
			SubjectID: req.SubjectID,
			TargetID:  req.TargetID,
			ExpiresAt: req.ExpiresAt,
			Now:       time.Now().UTC(),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// EndBlockController lifts a block.
type EndBlockController struct {
	UC *usecase.EndBlockUseCase
}

func NewEndBlockController(pool *pgxpool.Pool) *EndBlockController {
	repo := repoAdapter.NewPgSupportRepository(pool)
	return &EndBlockController{UC: usecase.NewEndBlockUseCase(repo)}
}

func (h *EndBlockController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := h.UC.Execute(ctx, usecase.EndBlockInput{BlockID: c.Param("blockId")}); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
