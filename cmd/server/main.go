package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clawcraft.app/relay/common/id"
	"clawcraft.app/relay/common/logger"
	"clawcraft.app/relay/common/otel"
	"clawcraft.app/relay/core/config"
	"clawcraft.app/relay/internal/http/handler/webhook"
	"clawcraft.app/relay/internal/http/middleware"
	httprouter "clawcraft.app/relay/internal/http/router"
	"clawcraft.app/relay/internal/queue"
	"clawcraft.app/relay/internal/service"
	"clawcraft.app/relay/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "clawcraft starting",
		"env", cfg.Env,
		"tracker", cfg.Tracker.Provider,
		"llm_provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"dispatch", cfg.Dispatch.Mode)

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	var (
		dispatcher queue.Dispatcher
		inline     *queue.InlineDispatcher
		producer   queue.Producer
	)

	switch cfg.Dispatch.Mode {
	case config.DispatchRedis:
		redisOpts, err := redis.ParseURL(cfg.Dispatch.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Dispatch.RedisStream)

		producer = queue.NewRedisProducer(redisClient, cfg.Dispatch.RedisStream, slog.Default())
		dispatcher = queue.NewQueueDispatcher(producer)
	default:
		services, err := service.NewServices(cfg)
		if err != nil {
			slog.ErrorContext(ctx, "failed to initialize services", "error", err)
			os.Exit(1)
		}

		inline = queue.NewInlineDispatcher(worker.NewJobHandler(services.Orchestrator()))
		dispatcher = inline
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, dispatcher)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	// In-flight commands still owe their users a reply.
	if inline != nil {
		if err := inline.Wait(shutdownCtx); err != nil {
			slog.WarnContext(shutdownCtx, "inline jobs did not finish", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			slog.ErrorContext(shutdownCtx, "redis close error", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, dispatcher queue.Dispatcher) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, httprouter.RouterConfig{
		SlackCommands: webhook.NewSlackCommandHandler(cfg.Slack.SigningSecret, dispatcher),
	})

	return router
}

const banner = `
 ██████╗██╗      █████╗ ██╗    ██╗ ██████╗██████╗  █████╗ ███████╗████████╗
██╔════╝██║     ██╔══██╗██║    ██║██╔════╝██╔══██╗██╔══██╗██╔════╝╚══██╔══╝
██║     ██║     ███████║██║ █╗ ██║██║     ██████╔╝███████║█████╗     ██║
██║     ██║     ██╔══██║██║███╗██║██║     ██╔══██╗██╔══██║██╔══╝     ██║
╚██████╗███████╗██║  ██║╚███╔███╔╝╚██████╗██║  ██║██║  ██║██║        ██║
 ╚═════╝╚══════╝╚═╝  ╚═╝ ╚══╝╚══╝  ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝        ╚═╝
`
