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

// EndSessionController lets a participant close their own session.
type EndSessionController struct {
	UC *usecase.EndSessionUseCase
}

func NewEndSessionController(pool *pgxpool.Pool, transports []nport.Transport, log *logger.Logger) *EndSessionController {
	repo := repoAdapter.NewPgSupportRepository(pool)
	return &EndSessionController{UC: usecase.NewEndSessionUseCase(repo, transports, log)}
}

func (h *EndSessionController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		session, err := h.UC.Execute(ctx, usecase.EndSessionInput{
			SessionID:     c.Param("sessionId"),
			ParticipantID: callerID(c),
			Now:           time.Now().UTC(),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toSessionResponse(session))
	}
}

// TouchSessionController records message activity so the lifecycle sweep
// sees the session as live.
type TouchSessionController struct {
	UC *usecase.TouchSessionUseCase
}

func NewTouchSessionController(pool *pgxpool.Pool) *TouchSessionController {
	repo := repoAdapter.NewPgSupportRepository(pool)
	return &TouchSessionController{UC: usecase.NewTouchSessionUseCase(repo)}
}

func (h *TouchSessionController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.TouchSessionInput{
			SessionID:     c.Param("sessionId"),
			ParticipantID: callerID(c),
			Now:           time.Now().UTC(),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// GetSessionController serves the landing flow's redirect into a session.
type GetSessionController struct {
	UC *usecase.GetSessionUseCase
}

func NewGetSessionController(pool *pgxpool.Pool) *GetSessionController {
	repo := repoAdapter.NewPgSupportRepository(pool)
	return &GetSessionController{UC: usecase.NewGetSessionUseCase(repo)}
}

func (h *GetSessionController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		session, err := h.UC.Execute(ctx, usecase.GetSessionInput{
			SessionID:     c.Param("sessionId"),
			ParticipantID: callerID(c),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toSessionResponse(session))
	}
}
