package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/georgemunganga/crafty-backend/internal/config"
	"github.com/georgemunganga/crafty-backend/internal/modules/auth"
	"github.com/georgemunganga/crafty-backend/internal/modules/cart"
	"github.com/georgemunganga/crafty-backend/internal/modules/notification"
	"github.com/georgemunganga/crafty-backend/internal/modules/order"
	"github.com/georgemunganga/crafty-backend/internal/modules/payment"
	"github.com/georgemunganga/crafty-backend/internal/modules/user"
	"github.com/georgemunganga/crafty-backend/internal/modules/vendor"
	"github.com/georgemunganga/crafty-backend/internal/platform/database"
	"github.com/georgemunganga/crafty-backend/internal/platform/events"
)

// app holds the wired services shared by serve and worker.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	rdb      *redis.Client
	registry *prometheus.Registry

	issuer     *auth.Issuer
	users      user.Service
	userRepo   user.Repository
	vendors    vendor.Service
	orders     order.Service
	payments   payment.Service
	queue      *notification.RedisQueue
	dispatcher *notification.Dispatcher
	publisher  events.Publisher
	events     *events.Listener
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("connected to database")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.Addr(),
		Password: cfg.Queue.Password,
		DB:       cfg.Queue.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Queue.Addr(), err)
	}

	publisher, err := events.New(cfg.Events)
	if err != nil {
		rdb.Close()
		db.Close()
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		db:        db,
		rdb:       rdb,
		registry:  prometheus.NewRegistry(),
		issuer:    auth.NewIssuer(cfg.Auth.JWTSecret),
		publisher: publisher,
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// ── Identity ────────────────────────────────────────────
	a.userRepo = user.NewPostgresRepository(db)
	a.users = user.NewService(a.userRepo)
	vendorRepo := vendor.NewPostgresRepository(db)
	a.vendors = vendor.NewService(vendorRepo)

	// ── Notifications ───────────────────────────────────────
	a.queue = notification.NewRedisQueue(rdb, cfg.Queue)
	a.dispatcher = notification.NewDispatcher(
		notification.NewDirectory(a.userRepo, vendorRepo),
		a.queue,
		cfg.Notification.AdminEmail,
		cfg.Queue.Attempts,
		cfg.Queue.EnqueueTimeout,
	)
	a.events = events.NewListener(publisher, cfg.Queue.EnqueueTimeout)

	// ── Orders ──────────────────────────────────────────────
	a.orders = order.NewService(
		order.NewPostgresRepository(db),
		cart.NewPostgresReader(db),
		a.dispatcher,
		a.events,
	)

	// ── Payments ────────────────────────────────────────────
	if cfg.Payment.Sandbox {
		log.Printf("payment sandbox enabled: card and wallet verification settles without a provider")
	}
	gateways := payment.NewRegistry(
		payment.NewCardGateway(cfg.Payment.Card.SecretKey, cfg.Payment.Card.BaseURL, cfg.Payment.Sandbox),
		payment.NewWalletGateway(cfg.Payment.Wallet.ClientID, cfg.Payment.Wallet.ClientSecret, cfg.Payment.Wallet.CheckoutURL, cfg.Payment.Sandbox),
		payment.NewBankTransferGateway(cfg.Payment.BankTransfer),
		payment.NewCODGateway(payment.NewRedisCodeStore(rdb), cfg.Payment.COD.CodeTTL),
	)
	a.payments = payment.NewService(payment.NewPostgresRepository(db), a.orders, gateways, cfg.Payment)

	return a, nil
}

func (a *app) newPool() *notification.Pool {
	return notification.NewPool(
		a.queue,
		notification.NewRenderer(),
		notification.NewMailer(a.cfg.Notification),
		notification.NewPoolMetrics(a.registry),
		a.cfg.Queue,
	)
}

// Close drains background hand-offs before releasing connections.
func (a *app) Close() {
	a.dispatcher.Wait()
	a.events.Wait()
	if err := a.publisher.Close(); err != nil {
		log.Printf("close event publisher: %v", err)
	}
	if err := a.rdb.Close(); err != nil {
		log.Printf("close redis: %v", err)
	}
	if err := a.db.Close(); err != nil {
		log.Printf("close database: %v", err)
	}
}
