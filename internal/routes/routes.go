package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/subsmanager/backend/internal/dto"
	"github.com/subsmanager/backend/internal/handlers"
	"github.com/subsmanager/backend/internal/middleware"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Health       *handlers.HealthHandler
	Subscription *handlers.SubscriptionHandler
	// Billing and Webhook are nil when Stripe is not configured.
	Billing *handlers.BillingHandler
	Webhook *handlers.WebhookHandler
}

func Setup(app *fiber.App, jwtSecret string, h Handlers) {
	app.Get("/health", h.Health.Check)

	api := app.Group("/api")

	// Stripe retries on its own schedule; it is never rate limited.
	if h.Webhook != nil {
		api.Post("/webhooks/stripe", h.Webhook.HandleStripe)
	}

	// General API rate limiter: 60 req/min per IP
	limited := api.Group("", rateLimit(60))

	// Auth: 10 req/min per IP (stricter)
	users := limited.Group("/users")
	users.Post("/register", rateLimit(10), h.Auth.Register)
	users.Post("/login", rateLimit(10), h.Auth.Login)

	protected := middleware.JWTProtected(jwtSecret)
	users.Delete("/:id", protected, h.Auth.DeleteAccount)
	if h.Billing != nil {
		users.Post("/checkout", protected, h.Billing.Checkout)
	}

	subs := limited.Group("/subscriptions", protected)
	subs.Get("/dashboard", h.Subscription.Dashboard)
	subs.Get("/", h.Subscription.List)
	subs.Post("/", h.Subscription.Create)
	subs.Put("/:id", h.Subscription.Update)
	subs.Delete("/:id", h.Subscription.Delete)
}

func rateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: true, Message: "Too many requests",
			})
		},
	})
}
