package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	repoAdapter "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/adapter"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// ConnectController is the claim endpoint behind the notification landing
// flow: the tapping listener attempts to convert the notification into an
// exclusive session.
type ConnectController struct {
	UC *usecase.ClaimSessionUseCase
}

func NewConnectController(pool *pgxpool.Pool, heartbeatThreshold time.Duration, log *logger.Logger) *ConnectController {
	repo := repoAdapter.NewPgSupportRepository(pool)
	return &ConnectController{UC: usecase.NewClaimSessionUseCase(repo, heartbeatThreshold, log)}
}

type connectRequest struct {
	SeekerID string `json:"seeker_id" binding:"required"`
}

func (h *ConnectController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req connectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		session, err := h.UC.Execute(ctx, usecase.ClaimSessionInput{
			ListenerID: callerID(c),
			SeekerID:   req.SeekerID,
			Now:        time.Now().UTC(),
		})
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"outcome": "connected",
				"session": toSessionResponse(session),
			})
			return
		}

		// Losing the race or arriving after the seeker was helped is an
		// expected outcome, not an error: the loser gets a friendly redirect.
		var lost *usecase.LostRaceError
		if errors.As(err, &lost) || errors.Is(err, support.ErrNoLongerNeeded) {
			resp := gin.H{"outcome": "already_helped"}
			if lost != nil && lost.Winner != nil {
				resp["session_id"] = lost.Winner.ID
			}
			c.JSON(http.StatusOK, resp)
			return
		}

		respondError(c, err)
	}
}
