package archive

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/geostream-archiver/pkg/metrics"
)

// OpsHandler exposes the worker's operational endpoints: liveness, processing
// counters, and Prometheus metrics. It is not a data-plane API.
type OpsHandler struct {
	handler *Handler
	logger  *zap.Logger
	metrics *metrics.ArchiverMetrics
	router  chi.Router
}

// NewOpsHandler constructs the ops handler and wires routes.
func NewOpsHandler(handler *Handler, logger *zap.Logger, m *metrics.ArchiverMetrics) *OpsHandler {
	h := &OpsHandler{
		handler: handler,
		logger:  logger,
		metrics: m,
	}
	h.buildRouter()
	return h
}

func (h *OpsHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.handleHealth)
	r.Get("/stats", h.handleStats)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	h.router = r
}

// Router exposes the configured chi router.
func (h *OpsHandler) Router() http.Handler {
	return h.router
}

func (h *OpsHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *OpsHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.handler.Stats())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
