package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/burkjackson/RecoveryBridge-sub001/internal/config"
	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
	qport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/queue/port"
	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	repoAdapter "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/adapter"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// SetIntentController handles posture changes (idle/available/requesting).
type SetIntentController struct {
	UC *usecase.SetIntentUseCase
}

func NewSetIntentController(pool *pgxpool.Pool, limiter usecase.RequestLimiter, queue qport.Client, transports []nport.Transport, m config.Matching, log *logger.Logger) *SetIntentController {
	repo := repoAdapter.NewPgSupportRepository(pool)
	notify := usecase.NewNotifySeekerUseCase(repo, queue, transports, log,
		m.HeartbeatThreshold, m.FavoriteHeadStart, m.EscalationDelay)
	return &SetIntentController{UC: usecase.NewSetIntentUseCase(repo, limiter, notify, log)}
}

type setIntentRequest struct {
	State string `json:"state" binding:"required"`
}

func (h *SetIntentController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.SetIntentInput{
			ParticipantID: callerID(c),
			State:         support.IntentState(req.State),
			Now:           time.Now().UTC(),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": req.State})
	}
}

// SetAlwaysAvailableController toggles the standing-availability override.
type SetAlwaysAvailableController struct {
	UC *usecase.SetAlwaysAvailableUseCase
}

func NewSetAlwaysAvailableController(pool *pgxpool.Pool) *SetAlwaysAvailableController {
	repo := repoAdapter.NewPgSupportRepository(pool)
	return &SetAlwaysAvailableController{UC: usecase.NewSetAlwaysAvailableUseCase(repo)}
}

type setAlwaysAvailableRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *SetAlwaysAvailableController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setAlwaysAvailableRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.SetAlwaysAvailableInput{
			ParticipantID: callerID(c),
			Enabled:       *req.Enabled,
			Now:           time.Now().UTC(),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
	}
}
