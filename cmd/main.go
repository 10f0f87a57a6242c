package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lunchroom/orders/internal/adapter/amqp"
	"github.com/lunchroom/orders/internal/adapter/logger"
	"github.com/lunchroom/orders/internal/adapter/postgres"
	"github.com/lunchroom/orders/internal/adapter/rabbitmq"
	"github.com/lunchroom/orders/internal/app/defaults"
	"github.com/lunchroom/orders/internal/app/order"
	"github.com/lunchroom/orders/internal/app/sweeper"
	"github.com/lunchroom/orders/internal/config"
	"github.com/lunchroom/orders/internal/domain"

	httpAdapter "github.com/lunchroom/orders/internal/adapter/http"
	"github.com/lunchroom/orders/internal/adapter/httpclient"
)

func main() {
	// Parse command-line flags
	mode := flag.String("mode", "", "Service mode: order-service, sweep, notification-subscriber")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	force := flag.Bool("force", false, "Confirm today's pending orders before the cutoff (sweep mode)")
	prefetch := flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}

	policy, err := domain.NewCutoffPolicy(cfg.Orders.Cutoff, loc)
	if err != nil {
		log.Fatalf("Failed to build cutoff policy: %v", err)
	}

	ctx := context.Background()

	// Initialize logger
	lgr := logger.New(*mode)

	// Connect to RabbitMQ
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	if *mode == "notification-subscriber" {
		runNotificationSubscriber(ctx, mqConn, lgr, *prefetch)
		return
	}

	// Connect to PostgreSQL
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	switch *mode {
	case "order-service":
		runOrderService(ctx, cfg, db, mqConn, policy, lgr)

	case "sweep":
		runSweep(ctx, db, mqConn, policy, lgr, *force)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func runOrderService(ctx context.Context, cfg *config.Config, db postgres.DB, mqConn rabbitmq.Connection, policy domain.CutoffPolicy, lgr logger.Logger) {
	// Initialize repositories
	orderRepo := postgres.NewOrderRepository(db)

	// Initialize messaging
	publisher := rabbitmq.NewPublisher(mqConn)

	// Initialize remote clients
	tokens := httpclient.NewTokenCache(cfg.Auth)
	menusClient := httpclient.NewMenusClient(cfg.Services.MenusURL, tokens)
	usersClient := httpclient.NewUsersClient(cfg.Services.UsersURL)

	// Initialize services
	sweeperService := sweeper.NewService(orderRepo, publisher, policy, lgr)
	orderService := order.NewService(orderRepo, menusClient, usersClient, sweeperService, policy, lgr)
	defaultsService := defaults.NewService(orderRepo, menusClient, usersClient, policy, lgr)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()

	// Startup sweep plus the daily timer at the cutoff instant.
	if err := sweeperService.Start(sweepCtx); err != nil {
		log.Fatalf("Failed to start sweeper: %v", err)
	}

	// Initialize HTTP handler
	orderHandler := httpAdapter.NewOrderHandler(orderService, defaultsService, lgr)

	// Setup HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", orderHandler.HandleOrders)
	mux.HandleFunc("/orders/", orderHandler.HandleOrderByID)
	mux.HandleFunc("/orders/today", orderHandler.HandleToday)
	mux.HandleFunc("/orders/monthly-defaults", orderHandler.HandleMonthlyDefaults)

	// Apply middleware
	handler := httpAdapter.AuthMiddleware(lgr)(mux)
	handler = httpAdapter.LoggingMiddleware(lgr)(handler)
	handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Order Service started on port %d", cfg.HTTP.Port), "startup", map[string]interface{}{
		"port":   cfg.HTTP.Port,
		"cutoff": policy.NextCutoff(time.Now()).Format(time.RFC3339),
	})

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down Order Service", "shutdown", nil)
		stopSweeper()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runSweep(ctx context.Context, db postgres.DB, mqConn rabbitmq.Connection, policy domain.CutoffPolicy, lgr logger.Logger, force bool) {
	orderRepo := postgres.NewOrderRepository(db)
	publisher := rabbitmq.NewPublisher(mqConn)
	sweeperService := sweeper.NewService(orderRepo, publisher, policy, lgr)

	var (
		count int
		err   error
	)
	if force {
		count, err = sweeperService.SweepForce(ctx)
	} else {
		count, err = sweeperService.Sweep(ctx)
	}
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	lgr.Info("sweep_done", fmt.Sprintf("Confirmed %d orders", count), "sweep", map[string]interface{}{
		"confirmed": count,
		"force":     force,
	})
}

func runNotificationSubscriber(ctx context.Context, mqConn rabbitmq.Connection, lgr logger.Logger, prefetch int) {
	consumer := rabbitmq.NewConsumer(mqConn, prefetch)
	notificationHandler := amqp.NewNotificationHandler(lgr)

	lgr.Info("service_started", "Notification Subscriber started", "startup", nil)

	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := consumer.ConsumeOrderEvents(consumeCtx, notificationHandler.HandleOrderConfirmed); err != nil && consumeCtx.Err() == nil {
			lgr.Error("consumer_error", "Error consuming events", "runtime", nil, err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
}
