package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/packtrack/packtrack/internal/ledger"
	"github.com/packtrack/packtrack/internal/masterdata"
	"github.com/packtrack/packtrack/internal/observability"
	"github.com/packtrack/packtrack/internal/production"
	"github.com/packtrack/packtrack/internal/receiving"
	"github.com/packtrack/packtrack/internal/shipping"
	"github.com/packtrack/packtrack/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	MasterDataHandler *masterdata.Handler
	StockHandler      *ledger.Handler
	ReceivingHandler  *receiving.Handler
	ProductionHandler *production.Handler
	ShippingHandler   *shipping.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Packtrack defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(r)
		}
		if params.StockHandler != nil {
			r.Route("/stock", params.StockHandler.MountRoutes)
		}
		if params.ReceivingHandler != nil {
			r.Route("/receipts", params.ReceivingHandler.MountRoutes)
		}
		if params.ProductionHandler != nil {
			r.Route("/production-batches", params.ProductionHandler.MountRoutes)
		}
		if params.ShippingHandler != nil {
			r.Route("/shipments", params.ShippingHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
