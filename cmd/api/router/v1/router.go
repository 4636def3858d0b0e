package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/burkjackson/RecoveryBridge-sub001/internal/config"
	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
	qport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/queue/port"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/realtime"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	httpHandler "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/presentation/http"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(
	r *gin.Engine,
	pool *pgxpool.Pool,
	limiter usecase.RequestLimiter,
	queue qport.Client,
	transports []nport.Transport,
	rt *realtime.Router,
	cfg *config.Config,
	log *logger.Logger,
) {
	v1 := r.Group("/api/v1")
	// Pass the shared infrastructure down to the HTTP layer
	httpHandler.RegisterRoutes(v1, pool, limiter, queue, transports, rt, cfg, log)
}
