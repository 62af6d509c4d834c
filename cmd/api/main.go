package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/srgjo27/ticket_marketplace/internal/adapter/cache"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/handler"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/notifier"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/payment"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/repository/memory"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/repository/postgres"
	"github.com/srgjo27/ticket_marketplace/internal/core/ports"
	"github.com/srgjo27/ticket_marketplace/internal/core/services"
	"github.com/srgjo27/ticket_marketplace/internal/platform/config"
	"github.com/srgjo27/ticket_marketplace/internal/platform/database"
	"github.com/srgjo27/ticket_marketplace/internal/platform/logger"
	"github.com/srgjo27/ticket_marketplace/internal/platform/metrics"
)

type repositories struct {
	events  ports.EventRepository
	ledger  ports.InventoryLedger
	orders  ports.OrderRepository
	tickets ports.TicketRepository
}

func main() {
	cfg := config.MustLoad()

	zl, err := logger.New(logger.Config{Level: cfg.Log.Level, Env: cfg.Env})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	checks := make(map[string]handler.HealthCheck)

	repos, db := openStorage(ctx, cfg, zl)
	if db != nil {
		defer db.Close()
		checks["postgres"] = db.PingContext
	}

	var availability ports.AvailabilityCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		zl.Info("Connecting to Redis", zap.String("addr", cfg.Redis.Addr))
		redisCache := cache.NewRedisAvailabilityCache(redisClient, cfg.Redis.CacheTTL)
		if err := redisCache.Ping(ctx); err != nil {
			zl.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		availability = redisCache
		checks["redis"] = redisCache.Ping
	}

	var orderNotifier ports.Notifier = notifier.NewLogNotifier(zl)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier, err := notifier.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, zl)
		if err != nil {
			zl.Fatal("Failed to connect to Kafka", zap.Error(err))
		}
		defer kafkaNotifier.Close()
		orderNotifier = kafkaNotifier
	}

	var gateway ports.PaymentGateway
	var sandbox *payment.Sandbox
	switch cfg.Payment.Provider {
	case "http":
		gateway = payment.NewHTTPGateway(payment.HTTPConfig{
			BaseURL: cfg.Payment.BaseURL,
			APIKey:  cfg.Payment.APIKey,
			Timeout: cfg.Payment.RequestTimeout,
		}, zl, m)
	case "sandbox":
		sandbox = payment.NewSandbox("http://localhost" + cfg.HTTP.Addr)
		gateway = sandbox
	default:
		zl.Fatal("Unknown payment provider", zap.String("provider", cfg.Payment.Provider))
	}

	signer, err := services.NewCodeSigner(cfg.Tickets.CodeKey)
	if err != nil {
		zl.Fatal("Invalid ticket code key", zap.Error(err))
	}

	eventService := services.NewEventService(repos.events, availability, zl)
	issuer := services.NewTicketIssuer(repos.orders, repos.tickets, signer, zl, m)
	orderService := services.NewOrderService(services.OrderDeps{
		Events:   repos.events,
		Ledger:   repos.ledger,
		Orders:   repos.orders,
		Tickets:  repos.tickets,
		Payments: gateway,
		Issuer:   issuer,
		Notifier: orderNotifier,
		Cache:    availability,
		Logger:   zl,
		Metrics:  m,
	}, services.OrderConfig{
		SessionTTL:     cfg.Payment.SessionTTL,
		PaymentTimeout: cfg.Payment.RequestTimeout,
		SuccessURL:     cfg.Payment.SuccessURL,
		CancelURL:      cfg.Payment.CancelURL,
	})
	validator := services.NewTicketValidator(repos.tickets, zl, m)
	reclaimer := services.NewExpiryReclaimer(repos.orders, orderService, zl, m, services.ReclaimerConfig{
		Interval:  cfg.Reclaimer.Interval,
		Threshold: cfg.Reclaimer.Threshold,
		BatchSize: cfg.Reclaimer.BatchSize,
	})

	routes := handler.RouterConfig{
		Events:       handler.NewEventHandler(eventService, zl),
		Orders:       handler.NewOrderHandler(orderService, zl),
		Tickets:      handler.NewTicketHandler(validator, zl),
		Webhooks:     handler.NewWebhookHandler(orderService, cfg.Payment.WebhookSecret, zl),
		Gatherer:     reg,
		Checks:       checks,
		Logger:       zl,
		GatewayToken: cfg.Auth.GatewayToken,
	}
	if sandbox != nil {
		routes.Sandbox = handler.NewSandboxHandler(sandbox, orderService, zl)
	}

	reclaimerDone := make(chan struct{})
	go func() {
		defer close(reclaimerDone)
		reclaimer.Run(ctx)
	}()

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.NewRouter(routes),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		zl.Info("Server starting", zap.String("addr", cfg.HTTP.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server startup failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}

	<-reclaimerDone
	orderService.Wait()

	zl.Info("Server exiting")
}

// openStorage returns the repositories for the configured driver. The
// *sql.DB is nil for the in-memory store.
func openStorage(ctx context.Context, cfg *config.Config, zl *zap.Logger) (repositories, *sql.DB) {
	switch cfg.Storage.Driver {
	case "memory":
		zl.Warn("Using in-memory storage; data is lost on restart and the process must run alone")
		store := memory.NewStore()
		return repositories{events: store, ledger: store, orders: store, tickets: store}, nil
	case "postgres":
	default:
		zl.Fatal("Unknown storage driver", zap.String("driver", cfg.Storage.Driver))
	}

	db, err := database.NewPostgresDB(ctx, database.Config{
		DSN:             cfg.Postgres.DSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}, zl)
	if err != nil {
		zl.Fatal("Failed to connect to db after retries", zap.Error(err))
	}

	if cfg.Postgres.MigrateOnStart {
		if err := database.Migrate(db); err != nil {
			zl.Fatal("Failed to apply migrations", zap.Error(err))
		}
		zl.Info("Database migrations applied")
	}

	return repositories{
		events:  postgres.NewEventRepository(db),
		ledger:  postgres.NewInventoryLedger(db),
		orders:  postgres.NewOrderRepository(db),
		tickets: postgres.NewTicketRepository(db),
	}, db
}
