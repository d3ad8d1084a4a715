package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/georgemunganga/crafty-backend/internal/modules/auth"
	"github.com/georgemunganga/crafty-backend/internal/modules/notification"
	"github.com/georgemunganga/crafty-backend/internal/modules/order"
	"github.com/georgemunganga/crafty-backend/internal/modules/payment"
	"github.com/georgemunganga/crafty-backend/internal/modules/user"
	"github.com/georgemunganga/crafty-backend/internal/modules/vendor"
	"github.com/georgemunganga/crafty-backend/internal/platform/metrics"
)

func serveCmd() *cobra.Command {
	var withWorkers bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Examples:
  crafty serve
  crafty serve --workers=false   # deliveries handled by "crafty worker"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), withWorkers)
		},
	}
	cmd.Flags().BoolVar(&withWorkers, "workers", true, "run the notification delivery pool in-process")
	return cmd
}

func runServe(parent context.Context, withWorkers bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required to serve the API")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// ── Router ──────────────────────────────────────────────
	serverMetrics := metrics.NewServerMetrics(a.registry, "api")
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(serverMetrics.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	router.Handle("/metrics", metrics.Handler(a.registry))

	// ── Public ──────────────────────────────────────────────
	userHandler := user.NewHandler(a.users)
	userHandler.RegisterRoutes(router)
	auth.NewHandler(auth.NewService(a.userRepo, a.issuer)).RegisterRoutes(router)

	// ── Authenticated ───────────────────────────────────────
	router.Group(func(r chi.Router) {
		r.Use(a.issuer.Middleware)
		r.With(auth.RequireAdmin).Get("/api/v1/users/{id}", userHandler.GetUser)
		vendor.NewHandler(a.vendors).RegisterRoutes(r)
		order.NewHandler(a.orders).RegisterRoutes(r)
		payment.NewHandler(a.payments, a.orders).RegisterRoutes(r)
		notification.NewHandler(a.queue).RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	poolDone := make(chan error, 1)
	if withWorkers {
		go func() { poolDone <- a.newPool().Run(ctx) }()
	} else {
		close(poolDone)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Crafty API server starting on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			<-poolDone
			return err
		}
	}

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	if err := <-poolDone; err != nil {
		log.Printf("delivery pool stopped: %v", err)
	}
	log.Println("server exited")
	return nil
}
