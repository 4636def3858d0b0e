package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/burkjackson/RecoveryBridge-sub001/internal/config"
	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
	qport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/queue/port"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/realtime"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/presentation/controller"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// RegisterRoutes registers the presence, matching and session endpoints under
// the given router group. It constructs per-endpoint controllers and binds
// them directly to routes.
func RegisterRoutes(
	g *gin.RouterGroup,
	pool *pgxpool.Pool,
	limiter usecase.RequestLimiter,
	queue qport.Client,
	transports []nport.Transport,
	rt *realtime.Router,
	cfg *config.Config,
	log *logger.Logger,
) {
	heartbeatCtl := controller.NewHeartbeatController(pool)
	intentCtl := controller.NewSetIntentController(pool, limiter, queue, transports, cfg.Matching, log)
	alwaysCtl := controller.NewSetAlwaysAvailableController(pool)
	connectCtl := controller.NewConnectController(pool, cfg.Matching.HeartbeatThreshold, log)
	endCtl := controller.NewEndSessionController(pool, transports, log)
	touchCtl := controller.NewTouchSessionController(pool)
	getCtl := controller.NewGetSessionController(pool)
	socketCtl := controller.NewSupportSocketController(pool, rt)
	createBlockCtl := controller.NewCreateBlockController(pool, transports, log)
	endBlockCtl := controller.NewEndBlockController(pool)

	participant := g.Group("/support", ParticipantAuth())

	// POST /api/v1/support/heartbeat -> refresh LastSeen
	participant.POST("/heartbeat", heartbeatCtl.Handle())

	// PUT /api/v1/support/intent -> move between idle/available/requesting
	participant.PUT("/intent", intentCtl.Handle())

	// PUT /api/v1/support/always-available -> standing availability override
	participant.PUT("/always-available", alwaysCtl.Handle())

	// POST /api/v1/support/connect -> listener claims a seeker's open request
	participant.POST("/connect", connectCtl.Handle())

	// GET  /api/v1/support/sessions/:sessionId       -> session state for the landing flow
	// POST /api/v1/support/sessions/:sessionId/end   -> participant leaves the session
	// POST /api/v1/support/sessions/:sessionId/touch -> record message activity
	participant.GET("/sessions/:sessionId", getCtl.Handle())
	participant.POST("/sessions/:sessionId/end", endCtl.Handle())
	participant.POST("/sessions/:sessionId/touch", touchCtl.Handle())

	// GET /api/v1/support/ws -> websocket push channel for notices
	participant.GET("/ws", socketCtl.Handle())

	admin := g.Group("/admin", AdminAuth(cfg.Admin.Token))
	admin.POST("/blocks", createBlockCtl.Handle())
	admin.POST("/blocks/:blockId/end", endBlockCtl.Handle())
}
