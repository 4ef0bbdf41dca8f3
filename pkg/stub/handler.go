package stub

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/simpleab/pkg/logger"
	"github.com/dmitrymomot/simpleab/pkg/requestid"
	"github.com/dmitrymomot/simpleab/pkg/simpleab"
	"github.com/dmitrymomot/simpleab/pkg/transport"
)

const maxBodySize = 1 << 20

// HandlerOption configures Handler.
type HandlerOption func(*handler)

// WithAPIKey requires every API request to carry key in the X-API-Key header.
func WithAPIKey(key string) HandlerOption {
	return func(h *handler) { h.apiKey = key }
}

// WithHandlerLogger sets the request logger. Build it with
// requestid.LoggerExtractor to get the request id on every record.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *handler) {
		if l != nil {
			h.logger = l
		}
	}
}

type handler struct {
	store  *Store
	apiKey string
	logger *slog.Logger
}

// Handler serves store over the HTTP protocol used by pkg/transport.
// GET /healthz answers without authentication.
func Handler(store *Store, opts ...HandlerOption) http.Handler {
	h := &handler{store: store, logger: logger.Discard()}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})

	r.Group(func(api chi.Router) {
		api.Use(h.authenticate)
		api.Post(transport.PathExperiments, h.fetchExperiments)
		api.Post(transport.PathMetrics, h.trackBatch)
		api.Post(transport.PathSegment, h.lookupSegment)
	})

	return r
}

func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiKey != "" {
			got := r.Header.Get(transport.HeaderAPIKey)
			if subtle.ConstantTimeCompare([]byte(got), []byte(h.apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.InfoContext(r.Context(), "request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			logger.Duration(time.Since(start)),
		)
	})
}

func (h *handler) fetchExperiments(w http.ResponseWriter, r *http.Request) {
	var req transport.FetchRequest
	if !decode(w, r, &req) {
		return
	}

	defs, _ := h.store.FetchExperiments(r.Context(), req.ExperimentIDs...)
	if len(defs) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": defs})
}

func (h *handler) trackBatch(w http.ResponseWriter, r *http.Request) {
	var batch simpleab.MetricBatch
	if !decode(w, r, &batch) {
		return
	}
	for _, e := range batch.Entries {
		if _, err := simpleab.ParseStage(string(e.Stage)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := simpleab.ParseAggregationType(string(e.AggregationType)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ok, _ := h.store.FlushMetrics(r.Context(), batch)
	h.logger.DebugContext(r.Context(), "metric batch received",
		logger.BatchID(batch.ID),
		logger.Count(len(batch.Entries)),
		slog.Bool("accepted", ok),
	)
	writeJSON(w, http.StatusOK, transport.FlushResponse{Success: ok})
}

func (h *handler) lookupSegment(w http.ResponseWriter, r *http.Request) {
	var req simpleab.SegmentRequest
	if !decode(w, r, &req) {
		return
	}
	seg, _ := h.store.LookupSegment(r.Context(), req)
	writeJSON(w, http.StatusOK, seg)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
