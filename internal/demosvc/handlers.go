package demosvc

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/covmark/covmark"
)

// MarkBadDivideInput is hit when a divide request carries a non-numeric
// operand.
const MarkBadDivideInput = "divide_bad_input"

// Handler holds dependencies for the demo HTTP handlers.
type Handler struct {
	cache  *Cache
	logger *zap.Logger
}

// NewHandler returns a new Handler.
func NewHandler(cache *Cache, logger *zap.Logger) *Handler {
	return &Handler{
		cache:  cache,
		logger: logger,
	}
}

// Divide handles GET /divide/{dividend}/{divisor}.
func (h *Handler) Divide(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	dividend, err1 := strconv.ParseUint(vars["dividend"], 10, 32)
	divisor, err2 := strconv.ParseUint(vars["divisor"], 10, 32)
	if err1 != nil || err2 != nil {
		covmark.Hit(MarkBadDivideInput)
		writeError(w, r, http.StatusBadRequest, "INVALID_OPERAND", "operands must be uint32")
		return
	}

	key := vars["dividend"] + "/" + vars["divisor"]
	if cached, ok := h.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, map[string]string{"quotient": cached, "source": "cache"})
		return
	}

	quotient := strconv.FormatUint(uint64(SafeDivide(uint32(dividend), uint32(divisor))), 10)
	h.cache.Set(key, quotient, cacheTTL)
	writeJSON(w, http.StatusOK, map[string]string{"quotient": quotient, "source": "computed"})
}

// NewRouter wires the demo routes with correlation-ID and rate-limit
// middleware, plus the covmark metrics endpoint.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(logger))
	r.Use(RateLimitMiddleware(limiter))
	r.HandleFunc("/divide/{dividend}/{divisor}", h.Divide).Methods(http.MethodGet)
	r.Handle("/metrics", covmark.MetricsHandler()).Methods(http.MethodGet)
	return r
}
