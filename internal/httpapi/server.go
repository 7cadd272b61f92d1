// Package httpapi serves the comparison over HTTP JSON so a browser form
// (five sliders) can drive it.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/23skdu/smellsense/internal/core"
	"github.com/23skdu/smellsense/internal/dashboard"
	"github.com/23skdu/smellsense/internal/metrics"
	"github.com/23skdu/smellsense/internal/signature"
)

// maxBodyBytes bounds compare request bodies.
const maxBodyBytes = 1 << 16

// CompareRequest is the JSON body of POST /api/v1/compare.
type CompareRequest struct {
	Levels []float64 `json:"levels"`
}

// DefaultsResponse is returned by GET /api/v1/defaults.
type DefaultsResponse struct {
	Names  []string  `json:"names"`
	Levels []float64 `json:"levels"`
	Step   float64   `json:"step"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler routes the HTTP API.
type Handler struct {
	comparer *dashboard.Comparer
	logger   zerolog.Logger
	mux      *http.ServeMux
}

// NewHandler builds the API routes. health is mounted at /healthz when non-nil.
func NewHandler(comparer *dashboard.Comparer, health http.Handler, logger zerolog.Logger) *Handler {
	h := &Handler{comparer: comparer, logger: logger, mux: http.NewServeMux()}
	h.mux.Handle("GET /api/v1/signatures", instrument("signatures", http.HandlerFunc(h.handleSignatures)))
	h.mux.Handle("GET /api/v1/defaults", instrument("defaults", http.HandlerFunc(h.handleDefaults)))
	h.mux.Handle("GET /api/v1/compare", instrument("compare", http.HandlerFunc(h.handleCompareQuery)))
	h.mux.Handle("POST /api/v1/compare", instrument("compare", http.HandlerFunc(h.handleCompareJSON)))
	if health != nil {
		h.mux.Handle("GET /healthz", health)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleSignatures(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.comparer.Store().Table())
}

func (h *Handler) handleDefaults(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, DefaultsResponse{
		Names:  signature.VOCNames(),
		Levels: h.comparer.Defaults(),
		Step:   dashboard.Step,
	})
}

// handleCompareQuery accepts slider values as query parameters keyed by VOC
// name, e.g. ?acetone=0.9&methane=0.4.
func (h *Handler) handleCompareQuery(w http.ResponseWriter, r *http.Request) {
	values := make(map[string]string)
	for key, vs := range r.URL.Query() {
		if len(vs) > 0 {
			values[key] = vs[len(vs)-1]
		}
	}
	levels, err := h.comparer.ParseLevels(values)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.compare(w, r, levels)
}

func (h *Handler) handleCompareJSON(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, core.NewInvalidArgumentError("body", err.Error()))
		return
	}
	h.compare(w, r, req.Levels)
}

func (h *Handler) compare(w http.ResponseWriter, r *http.Request, levels []float64) {
	res, err := h.comparer.Compare(r.Context(), levels)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := core.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		metrics.HTTPDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
