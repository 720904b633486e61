package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go.uber.org/zap"

	"github.com/harborline/shopfront/internal/cart"
	"github.com/harborline/shopfront/internal/config"
	"github.com/harborline/shopfront/internal/listview"
	"github.com/harborline/shopfront/internal/notify"
	"github.com/harborline/shopfront/internal/observability"
	"github.com/harborline/shopfront/model"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config             *config.Config
	Logger             *zap.Logger
	Authenticate       func(http.Handler) http.Handler
	CapabilityResolver model.CapabilityResolver
	ListView           *listview.Provider
	Cart               *cart.Service
	Notifier           *notify.Registry
	Metrics            *observability.Metrics
	Readiness          observability.ReadinessChecks
}

type handlers struct {
	listView *listview.Provider
	cart     *cart.Service
	notifier *notify.Registry
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	h := &handlers{
		listView: deps.ListView,
		cart:     deps.Cart,
		notifier: deps.Notifier,
	}

	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery(deps.Logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	if deps.Config.Observability.Tracing.Enabled {
		r.Use(observability.TracingMiddleware)
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.MetricsMiddleware)
	}

	// Public routes, no authentication.
	r.Get("/ui/health", observability.HandleHealth())
	r.Get("/ui/ready", observability.HandleReady(deps.Readiness))
	if deps.Config.Observability.Metrics.Enabled {
		path := deps.Config.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, observability.Handler())
	}

	// Authenticated routes with the full middleware chain.
	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(BuildRequestContext)
		r.Use(ResolveCapabilities(deps.CapabilityResolver, deps.Logger))
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(deps.Logger))

		r.Get("/ui/resources/{resource}", h.handleResourceDescriptor)
		r.Get("/ui/resources/{resource}/data", h.handleResourceData)
		r.Post("/ui/resources/{resource}", h.handleResourceCreate)
		r.Delete("/ui/resources/{resource}/{itemID}", h.handleResourceDelete)

		r.Get("/ui/cart/{orderID}/summary", h.handleCartSummary)
		r.Post("/ui/cart/{orderID}/promotions/{code}", h.handleApplyPromotion)
		r.Delete("/ui/cart/{orderID}/promotions/{code}", h.handleRemovePromotion)

		r.Get("/ui/notifications", h.handleNotifications)
		r.Delete("/ui/notifications/{id}", h.handleDismissNotification)
	})

	return r
}
