package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	v1 "github.com/burkjackson/RecoveryBridge-sub001/cmd/api/router/v1"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/config"
	cacheAdapter "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/cache/adapter"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/database"
	notifyAdapter "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/adapter"
	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
	queueAdapter "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/queue/adapter"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/ratelimit"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/realtime"
	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/task"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	repoAdapter "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/adapter"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logg := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to the database on startup
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := database.Connect(connectCtx, cfg.Database.URL)
	cancel()
	if err != nil {
		logg.Errorf("failed to connect to database: %v", err)
		log.Fatal(err)
	}
	defer pool.Close()

	cache, err := cacheAdapter.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		logg.Errorf("failed to connect to redis: %v", err)
		log.Fatal(err)
	}
	defer func() { _ = cache.Close() }()

	limiter := ratelimit.New(cache, "support:requests", cfg.RateLimit.Window, cfg.RateLimit.Max)

	queueClient, err := queueAdapter.NewAsynqClient(cfg.Redis.URL)
	if err != nil {
		logg.Errorf("failed to create queue client: %v", err)
		log.Fatal(err)
	}
	defer func() { _ = queueClient.Close() }()

	queueServer, err := queueAdapter.NewAsynqServer(cfg.Redis.URL, 10)
	if err != nil {
		logg.Errorf("failed to create queue server: %v", err)
		log.Fatal(err)
	}

	rt := realtime.NewRouter()
	defer rt.Close()

	// Websocket first so connected participants get instant delivery; AMQP
	// carries the same notices to the mobile push pipeline when configured.
	transports := []nport.Transport{notifyAdapter.NewWSNotifier(rt)}
	if cfg.AMQP.URL != "" {
		amqpNotifier, err := notifyAdapter.NewAMQPNotifier(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logg.Errorf("failed to connect to amqp: %v", err)
			log.Fatal(err)
		}
		defer amqpNotifier.Close()
		transports = append(transports, amqpNotifier)
	}

	repo := repoAdapter.NewPgSupportRepository(pool)

	notify := usecase.NewNotifySeekerUseCase(repo, queueClient, transports, logg,
		cfg.Matching.HeartbeatThreshold, cfg.Matching.FavoriteHeadStart, cfg.Matching.EscalationDelay)
	task.RegisterNotifyTasks(queueServer, notify, logg)

	sweep := usecase.NewSweepSessionsUseCase(repo, transports, logg, support.LifecycleRules{
		NoMessageCutoff:   cfg.Lifecycle.NoMessageCutoff,
		InactivityWarning: cfg.Lifecycle.InactivityWarning,
		AutoCloseGrace:    cfg.Lifecycle.AutoCloseGrace,
		StaleCutoff:       cfg.Lifecycle.StaleCutoff,
	})
	sweepLoop := task.NewSweepLoop(sweep, cfg.Lifecycle.SweepInterval, logg)

	go func() {
		if err := queueServer.Run(ctx); err != nil {
			logg.Errorf("queue server stopped: %v", err)
		}
	}()
	go sweepLoop.Run(ctx)

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		if err := cache.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "cache": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})

	v1.RegisterRoutes(r, pool, limiter, queueClient, transports, rt, cfg, logg)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logg.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Errorf("http server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logg.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Errorf("http shutdown: %v", err)
	}
}
