package http

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insominiac/dancelink-staging-sub000/internal/metrics"
)

// RouterConfig collects everything the HTTP surface depends on. Ledger must
// satisfy the hold lifecycle; Availability may be the cached wrapper.
type RouterConfig struct {
	Ledger       LedgerAPI
	Availability AvailabilityProvider
	Catalog      Catalog
	Logger       *log.Logger
	Metrics      *metrics.Metrics
	MetricsPath  string
	CORSOrigins  []string
}

// LedgerAPI is the full hold lifecycle the router exposes.
type LedgerAPI interface {
	Reserver
	HoldReleaser
	HoldConfirmer
	HoldLister
}

// NewRouter wires routes and middleware into the service's HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = NotFoundHandler()
	r.MethodNotAllowedHandler = NotFoundHandler()
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
	}

	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Handle("/holds", HandleReserve(cfg.Ledger)).Methods(http.MethodPost)
	api.Handle("/holds/{holdId}/release", HandleRelease(cfg.Ledger)).Methods(http.MethodPost)
	api.Handle("/holds/{holdId}/confirm", HandleConfirm(cfg.Ledger)).Methods(http.MethodPost)
	api.Handle("/items/{itemType}/{itemId}/availability", HandleAvailability(cfg.Availability)).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Handle("/items", HandleCreateItem(cfg.Catalog)).Methods(http.MethodPost)
	admin.Handle("/items", HandleListItems(cfg.Catalog)).Methods(http.MethodGet)
	admin.Handle("/items/{itemType}/{itemId}", HandleGetItem(cfg.Catalog, cfg.Ledger)).Methods(http.MethodGet)

	handler := CORS(cfg.CORSOrigins, r)
	handler = RequestLogger(handler, cfg.Logger)
	return handler
}
