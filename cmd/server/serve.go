package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rentease/backend/docs"
	"github.com/rentease/backend/internal/database"
	mW "github.com/rentease/backend/internal/middleware"
	"github.com/rentease/backend/internal/router"
	"github.com/rentease/backend/internal/services"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var swaggerHost string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, db, log, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			rdb := database.InitRedis(ctx, log)
			if rdb != nil {
				defer rdb.Close()
			}

			if cfg.Stripe.SecretKey == "" {
				log.Warn().Msg("STRIPE_SECRET_KEY is not set, payment creation will fail")
			}
			if cfg.Stripe.WebhookSecret == "" {
				log.Warn().Msg("STRIPE_WEBHOOK_SECRET is not set, every webhook will be rejected")
			}
			gateway := services.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Payments.MinChargeAmount, nil)

			docs.SwaggerInfo.Host = swaggerHost
			docs.SwaggerInfo.Version = Version

			limiter := mW.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
			go func() {
				ticker := time.NewTicker(time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						limiter.Sweep()
					}
				}
			}()

			handler := router.New(router.Deps{
				Config:      cfg,
				DB:          db,
				Redis:       rdb,
				Gateway:     gateway,
				RateLimiter: limiter,
				Logger:      log,
			})

			server := &http.Server{
				Addr:         ":" + cfg.Server.Port,
				Handler:      handler,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", server.Addr).Msg("Server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}

			log.Info().Msg("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&swaggerHost, "swagger-host", "localhost:8080", "host advertised in the API docs")
	return cmd
}
