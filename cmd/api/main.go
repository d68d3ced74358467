package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/ec-fulfillment/internal/api"
	"github.com/example/ec-fulfillment/internal/auth"
	"github.com/example/ec-fulfillment/internal/command"
	"github.com/example/ec-fulfillment/internal/domain/inventory"
	"github.com/example/ec-fulfillment/internal/domain/notification"
	"github.com/example/ec-fulfillment/internal/domain/order"
	"github.com/example/ec-fulfillment/internal/infrastructure/config"
	"github.com/example/ec-fulfillment/internal/infrastructure/kafka"
	"github.com/example/ec-fulfillment/internal/infrastructure/logger"
	"github.com/example/ec-fulfillment/internal/infrastructure/redisx"
	"github.com/example/ec-fulfillment/internal/infrastructure/store"
	"github.com/example/ec-fulfillment/internal/infrastructure/telemetry"
	"github.com/example/ec-fulfillment/internal/monitor"
	"github.com/example/ec-fulfillment/internal/query"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ec-fulfillment: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}

	stores, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	// Publishing is optional; without brokers events are only logged.
	var (
		orderOpts       = []order.Option{order.WithMaxUpdateRetries(cfg.Order.MaxUpdateRetries)}
		notifyPublisher notification.Publisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = producer.Close() }()
		orderOpts = append(orderOpts, order.WithPublisher(producer))
		notifyPublisher = producer
		log.Info("Kafka publishing enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	notificationSvc := notification.NewService(stores.Notifications, notifyPublisher, log)
	inventorySvc := inventory.NewService(stores.Products, notificationSvc, log,
		inventory.WithMaxCASRetries(cfg.Inventory.MaxCASRetries),
		inventory.WithStaffAlerts(cfg.Inventory.AlertStaff),
	)
	orderSvc := order.NewService(stores.Orders, stores.Products, inventorySvc, notificationSvc, stores.Vendors, log, orderOpts...)

	handlers := api.NewHandlers(
		command.NewHandler(orderSvc, inventorySvc, notificationSvc),
		query.NewHandler(stores.Orders),
		notificationSvc,
		log,
	)
	server := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewRouter(api.RouterConfig{
			Handlers:   handlers,
			JWTService: auth.NewJWTService(cfg.JWT.Secret, 15*time.Minute),
			Logger:     log,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	var (
		stockMonitor *monitor.StockMonitor
		closeLease   = func() error { return nil }
	)
	if cfg.Monitor.Enabled {
		var lease monitor.Lease
		lease, closeLease = newLease(cfg, log)
		stockMonitor = monitor.NewStockMonitor(inventorySvc, lease, cfg.Monitor.Interval, log)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if stockMonitor != nil {
		stockMonitor.Start(gctx)
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if stockMonitor != nil {
			if err := stockMonitor.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("stop monitor: %w", err))
			}
		}
		// The lease is released by Stop, so the client can go now.
		if err := closeLease(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// openStores builds the repositories the configuration selects. The returned
// func closes any connections opened.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Stores, func(), error) {
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var stores store.Stores
	switch cfg.Store.Driver {
	case "postgres":
		db, err := store.ConnectPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return stores, closeAll, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := store.EnsureSchema(ctx, db); err != nil {
			closeAll()
			return stores, func() {}, err
		}
		stores = store.NewPostgresStores(db)
		log.Info("Connected to PostgreSQL")
	default:
		stores, _, _ = store.NewMemoryStores()
		log.Warn("Using in-memory stores; data is lost on restart")
	}

	if cfg.Store.InventoryDriver == "dynamodb" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			closeAll()
			return stores, func() {}, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Store.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Store.DynamoDBEndpoint)
			}
		})
		stores.Products = store.NewDynamoProductStore(client, cfg.Store.DynamoDBTable)
		log.Info("Inventory ledger on DynamoDB", zap.String("table", cfg.Store.DynamoDBTable))
	}

	return stores, closeAll, nil
}

// newLease picks the monitor's lease. With Redis configured only one replica
// sweeps per interval. The returned func closes the Redis client, if any.
func newLease(cfg *config.Config, log *zap.Logger) (monitor.Lease, func() error) {
	if cfg.Redis.Addr == "" {
		return monitor.LocalLease{}, func() error { return nil }
	}
	ttl := cfg.Monitor.Interval - cfg.Monitor.Interval/10
	client := redisx.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	log.Info("Stock monitor using Redis lease", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", ttl))
	lease := redisx.NewLease(client, redisx.MonitorLeaseKey, ttl)
	return lease, lease.Close
}
