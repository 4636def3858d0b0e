package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	repoAdapter "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/adapter"
)

// HeartbeatController handles the presence ping endpoint.
// One controller per endpoint.
type HeartbeatController struct {
	UC *usecase.RecordHeartbeatUseCase
}

func NewHeartbeatController(pool *pgxpool.Pool) *HeartbeatController {
	repo := repoAdapter.NewPgSupportRepository(pool)
	return &HeartbeatController{UC: usecase.NewRecordHeartbeatUseCase(repo)}
}

func (h *HeartbeatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.RecordHeartbeatInput{
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
