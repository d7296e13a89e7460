package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	_ "github.com/rentease/backend/docs"
	"github.com/rentease/backend/internal/audit"
	"github.com/rentease/backend/internal/config"
	"github.com/rentease/backend/internal/handlers"
	mW "github.com/rentease/backend/internal/middleware"
	"github.com/rentease/backend/internal/services"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Deps struct {
	Config      *config.Config
	DB          *sql.DB
	Redis       *redis.Client
	Gateway     services.PaymentGateway
	RateLimiter *mW.RateLimiter
	Logger      zerolog.Logger
}

// Services are built from Deps and shared by handlers and background jobs.
type Services struct {
	Ledger        *services.LedgerService
	Escrow        *services.EscrowService
	Wallet        *services.WalletService
	Webhook       *services.WebhookService
	Notifications *services.NotificationService
	Messages      *services.MessageService
}

func NewServices(d Deps) *Services {
	cfg := d.Config
	auditLog := audit.NewLogger(d.Logger)

	notifications := services.NewNotificationService(d.DB, d.Redis, d.Logger)
	ledger := services.NewLedgerService(d.DB, auditLog)
	escrow := services.NewEscrowService(d.DB, d.Gateway, ledger, notifications, auditLog, d.Logger, services.EscrowOptions{
		Currency:           cfg.Payments.Currency,
		PlatformFeePercent: cfg.Escrow.PlatformFeePercent,
	})

	webhooks := services.NewWebhookService(ledger, escrow, notifications, d.Redis, d.Logger, services.WebhookOptions{
		Secret:    cfg.Stripe.WebhookSecret,
		DedupeTTL: cfg.Webhook.DedupeTTL,
	})

	return &Services{
		Ledger:        ledger,
		Escrow:        escrow,
		Wallet:        services.NewWalletService(d.DB, d.Gateway, ledger, cfg.Payments.Currency),
		Webhook:       webhooks,
		Notifications: notifications,
		Messages:      services.NewMessageService(d.DB, notifications),
	}
}

func New(d Deps) http.Handler {
	services.UseNumericAmounts()
	svc := NewServices(d)
	log := d.Logger
	auth := mW.NewAuthenticator(d.Config.JWT.SecretKey)
	limiter := d.RateLimiter
	if limiter == nil {
		limiter = mW.NewRateLimiter(d.Config.RateLimit.RequestsPerSecond, d.Config.RateLimit.Burst)
	}

	paymentHandler := handlers.NewPaymentHandler(svc.Escrow, svc.Wallet, log)
	escrowHandler := handlers.NewEscrowHandler(svc.Escrow, log)
	walletHandler := handlers.NewWalletHandler(svc.Ledger, log)
	webhookHandler := handlers.NewWebhookHandler(svc.Webhook, d.Config.Webhook.MaxBodyBytes, log)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications, log)
	messageHandler := handlers.NewMessageHandler(svc.Messages, log)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RealIP)
	r.Use(mW.RequestLogging(log))
	r.Use(mW.Recovery(log))
	r.Use(mW.SecurityHeaders)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		services.SendJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Stripe signs the body; nothing else authenticates this route.
		r.Post("/webhooks/stripe", webhookHandler.StripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Use(auth.Optional)

			r.Post("/payments/escrow", paymentHandler.CreateEscrowPayment)
			r.Post("/payments/escrow/release", paymentHandler.ReleaseEscrow)
			r.Post("/payments/wallet/deposit", paymentHandler.CreateWalletDeposit)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Require)

			r.Get("/wallet/balance", walletHandler.GetBalance)
			r.Get("/wallet/transactions", walletHandler.ListTransactions)

			r.Get("/escrows", escrowHandler.ListEscrows)
			r.Get("/escrows/{escrowId}", escrowHandler.GetEscrow)

			r.Get("/notifications", notificationHandler.ListNotifications)
			r.Post("/notifications/{id}/read", notificationHandler.MarkRead)

			r.Post("/conversations/{id}/messages", messageHandler.SendMessage)
			r.Get("/conversations/{id}/messages", messageHandler.ListMessages)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			r.Use(mW.RequireRole(mW.RoleAdmin))

			r.Post("/admin/escrows/{escrowId}/cancel", escrowHandler.CancelEscrow)
		})
	})

	return r
}
