package api

import (
	"crypto/rsa"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/handlers"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/middleware"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/contact"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/gatekeeper"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/ingest"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/metrics"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/query"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/ratelimit"
)

type Deps struct {
	Store    catalog.Store
	DB       *sql.DB
	Importer *ingest.Importer
	Logger   *zap.Logger
	Metrics  *metrics.Metrics

	GeneralGate     ratelimit.Limiter
	SubmissionGuard ratelimit.Limiter

	ImageAllowedHosts []string
	ImageProxyTimeout time.Duration

	AdminSecret    string
	AdminPublicKey *rsa.PublicKey

	DefaultMinDiscount int
	TrustProxy         bool
}

// NewRouter wires every route. All /api/ routes pass the general gate.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, middleware.Observe{
			Route:   pattern,
			Logger:  d.Logger,
			Metrics: d.Metrics,
			Next:    h,
		})
	}
	gated := func(h http.Handler) http.Handler {
		return middleware.RateLimitMiddleware{
			Name:    "general",
			Limiter: d.GeneralGate,
			Metrics: d.Metrics,
			Next:    h,
		}
	}
	admin := func(h http.Handler) http.Handler {
		return gated(middleware.AdminAuthMiddleware{
			Secret:    d.AdminSecret,
			PublicKey: d.AdminPublicKey,
			Logger:    d.Logger,
			Next:      h,
		})
	}

	querySvc := query.NewService(d.Store)
	contactSvc := contact.NewService(d.Store, d.SubmissionGuard, d.Logger.Named("contact"))

	handle("GET /healthz", handlers.HealthHandler{DB: d.DB})
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	handle("GET /api/deals", gated(handlers.DealsHandler{Query: querySvc, DefaultMinDiscount: d.DefaultMinDiscount}))
	handle("GET /api/deals/{id}", gated(handlers.DealDetailHandler{Query: querySvc}))
	handle("POST /api/contact", gated(handlers.ContactHandler{Service: contactSvc, Metrics: d.Metrics}))
	handle("GET /api/image", gated(handlers.NewImageProxyHandler(
		gatekeeper.New(d.ImageAllowedHosts), d.ImageProxyTimeout, d.Metrics,
	)))

	messages := handlers.AdminMessagesHandler{Store: d.Store}
	handle("GET /api/admin/messages", admin(messages))
	handle("POST /api/admin/messages/read", admin(messages))
	handle("DELETE /api/admin/messages", admin(messages))
	handle("DELETE /api/admin/deals", admin(handlers.AdminDealsHandler{Store: d.Store}))
	handle("GET /api/admin/runs", admin(handlers.AdminRunsHandler{Store: d.Store}))
	if d.Importer != nil {
		handle("POST /api/admin/import", admin(middleware.IdempotencyMiddleware{
			Store: d.Store,
			Next:  handlers.AdminImportHandler{Importer: d.Importer},
		}))
	}

	return middleware.ClientIPMiddleware{TrustProxy: d.TrustProxy, Next: mux}
}
