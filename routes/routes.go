package routes

import (
	"net/http"

	"checkout-service/common/middleware"
	"checkout-service/controllers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Body size limits per capability.
const (
	maxJSONBody    int64 = 64 << 10
	maxWebhookBody int64 = 512 << 10
)

// Route is one entry of the routing policy. Body decides how, if at all, the
// handler may consume the request body.
type Route struct {
	Method      string
	Path        string
	Body        middleware.BodyMode
	RateLimited bool
	Handler     gin.HandlerFunc
}

// Controllers groups the handlers exposed by the service.
type Controllers struct {
	Checkout *controllers.CheckoutController
	Webhook  *controllers.WebhookController
	System   *controllers.SystemController
}

// Options tunes the global middleware chain.
type Options struct {
	AllowedOrigins []string
	Metrics        middleware.MetricsRecorder
	ServiceName    string
}

// Table is the routing policy. Only the webhook receives the raw body.
func Table(ctrl Controllers) []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/create-checkout-session", Body: middleware.BodyJSON, RateLimited: true, Handler: ctrl.Checkout.CreateCheckoutSession},
		{Method: http.MethodGet, Path: "/checkout-session/:id", Body: middleware.BodyNone, Handler: ctrl.Checkout.GetCheckoutSession},
		{Method: http.MethodPost, Path: "/webhook", Body: middleware.BodyRaw, Handler: ctrl.Webhook.HandleWebhook},
		{Method: http.MethodPost, Path: "/test-email", Body: middleware.BodyJSON, RateLimited: true, Handler: ctrl.System.TestEmail},
		{Method: http.MethodGet, Path: "/health", Body: middleware.BodyNone, Handler: ctrl.System.Health},
	}
}

// RegisterRoutes installs the global middleware and every route of Table.
func RegisterRoutes(router *gin.Engine, ctrl Controllers, opts Options, logger *zap.Logger) {
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(opts.AllowedOrigins),
		middleware.MetricsMiddleware(opts.Metrics, opts.ServiceName),
	)

	limiter := middleware.RateLimitMiddleware()
	for _, route := range Table(ctrl) {
		handlers := []gin.HandlerFunc{middleware.Body(route.Body, bodyLimit(route.Body))}
		if route.RateLimited {
			handlers = append([]gin.HandlerFunc{limiter}, handlers...)
		}
		handlers = append(handlers, route.Handler)
		router.Handle(route.Method, route.Path, handlers...)
	}
}

func bodyLimit(mode middleware.BodyMode) int64 {
	if mode == middleware.BodyRaw {
		return maxWebhookBody
	}
	return maxJSONBody
}
