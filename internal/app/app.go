package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Omaralyxt/Lumi-Seller/internal/auth"
	"github.com/Omaralyxt/Lumi-Seller/internal/cache"
	"github.com/Omaralyxt/Lumi-Seller/internal/catalog"
	"github.com/Omaralyxt/Lumi-Seller/internal/config"
	"github.com/Omaralyxt/Lumi-Seller/internal/dashboard"
	"github.com/Omaralyxt/Lumi-Seller/internal/httpapi"
	"github.com/Omaralyxt/Lumi-Seller/internal/messaging"
	"github.com/Omaralyxt/Lumi-Seller/internal/notification"
	"github.com/Omaralyxt/Lumi-Seller/internal/objstore"
	"github.com/Omaralyxt/Lumi-Seller/internal/order"
	"github.com/Omaralyxt/Lumi-Seller/internal/payment"
	"github.com/Omaralyxt/Lumi-Seller/internal/realtime"
	"github.com/Omaralyxt/Lumi-Seller/internal/storage"
	"github.com/Omaralyxt/Lumi-Seller/internal/storefront"
)

type App struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	hub       *realtime.Hub
	relay     *realtime.Relay
	publisher messaging.Publisher
	outbox    *messaging.OutboxDispatcher
	consumer  *messaging.Consumer
	sweeper   *catalog.OrphanSweeper
	httpSrv   *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	pool := store.Pool()

	rdb := cache.NewRedis(cfg.RedisAddr, cfg.RedisDB)
	metricsCache := cache.NewMetricsCache(rdb, cfg.MetricsCacheTTL)
	dedupe := cache.NewLocker(rdb, 24*time.Hour)

	objects := objstore.NewClient(cfg.Storage.BaseURL, cfg.Storage.Bucket)

	authSvc := auth.NewService(auth.NewPgRepository(pool), cfg.JWTSecret, cfg.TokenTTL)
	storeSvc := storefront.NewService(storefront.NewPgRepository(pool))
	catalogRepo := catalog.NewPgRepository(pool)
	catalogSvc := catalog.NewService(catalogRepo, objects, logger)
	orderRepo := order.NewPgRepository(pool)
	orderSvc := order.NewService(orderRepo, logger)
	notificationSvc := notification.NewService(notification.NewPgRepository(pool))
	dashboardSvc := dashboard.NewService(dashboard.NewPgRepository(pool), metricsCache, logger)

	gateway := payment.NewMpesaClient(cfg.Mpesa.BaseURL, cfg.Mpesa.APIKey)
	paymentSvc := payment.NewService(orderRepo, gateway, dedupe, cfg.Mpesa.ServiceProviderCode, logger)

	hub := realtime.NewHub()
	relay := realtime.NewRelay(hub, notificationSvc, metricsCache, logger)
	wsHandler := realtime.NewHandler(hub, storeSvc, logger)

	publisher, err := messaging.NewRabbitPublisher(cfg.RabbitURL, cfg.EventsExchange)
	if err != nil {
		store.Close()
		return nil, err
	}

	consumer, err := messaging.NewRabbitConsumer(cfg.RabbitURL, cfg.EventsExchange, cfg.EventsQueue, logger)
	if err != nil {
		store.Close()
		publisher.Close()
		return nil, err
	}

	api := httpapi.NewServer(httpapi.Services{
		Auth:          authSvc,
		Stores:        storeSvc,
		Catalog:       catalogSvc,
		Orders:        orderSvc,
		Payments:      paymentSvc,
		Notifications: notificationSvc,
		Dashboard:     dashboardSvc,
		Realtime:      wsHandler,
		Objects:       objects,
		WebhookSecret: cfg.Mpesa.WebhookSecret,
	}, logger)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api,
	}

	outbox := messaging.NewOutboxDispatcher(pool, publisher, "order_outbox", cfg.OutboxInterval, cfg.OutboxBatchSize, logger)
	sweeper := catalog.NewOrphanSweeper(catalogRepo, objects, cfg.OrphanSweepInterval, logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		hub:       hub,
		relay:     relay,
		publisher: publisher,
		outbox:    outbox,
		consumer:  consumer,
		sweeper:   sweeper,
		httpSrv:   httpSrv,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	a.outbox.Start(ctx)

	go a.hub.Run(ctx)
	go a.sweeper.Run(ctx)

	go func() {
		errCh <- a.consumer.Start(ctx, a.relay.Handle)
	}()

	go func() {
		a.logger.Info("seller api listening", "addr", a.cfg.HTTPAddr)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownGracePeriod)
	defer cancel()
	_ = a.httpSrv.Shutdown(shutdownCtx)
	a.consumer.Close()
	a.publisher.Close()
	a.store.Close()
}

func Run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close(ctx)

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}
