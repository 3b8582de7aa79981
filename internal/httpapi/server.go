// Package httpapi is the daemon's local diagnostics window. The supervised
// core itself has no network surface; these endpoints expose its state to
// operators and debugging tools.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vedad/pkg/types"
)

// Service defines the supervisor methods required by the HTTP layer.
type Service interface {
	QueueStatus() types.QueueStatus
	Snapshot() types.TelemetrySnapshot
	Budget() types.ComputeBudget
	SetBudget(types.ComputeBudget) error
	Baseline() *types.MeasuredBaseline
	QoS() QoSView
	Ready() bool
}

// QoSView is the read-only projection served at /qos.
type QoSView struct {
	Level      string              `json:"level"`
	Throttled  bool                `json:"throttled"`
	Parameters types.QoSParameters `json:"parameters"`
}

// zlog is an optional structured logger. Nop until installed.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// maxBodyBytes limits PUT /budget payloads.
var maxBodyBytes int64 = 1 << 20

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{"GET", "PUT"},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if !svc.Ready() {
			writeJSONError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, svc.QueueStatus())
	})

	r.Get("/telemetry", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, svc.Snapshot())
	})

	r.Get("/qos", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, svc.QoS())
	})

	r.Get("/baseline", func(w http.ResponseWriter, req *http.Request) {
		base := svc.Baseline()
		if base == nil {
			writeJSONError(w, http.StatusNotFound, "baseline not measured yet")
			return
		}
		writeJSON(w, base)
	})

	r.Get("/budget", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, svc.Budget())
	})

	r.Put("/budget", func(w http.ResponseWriter, req *http.Request) {
		ct := req.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
		var b types.ComputeBudget
		if err := json.NewDecoder(req.Body).Decode(&b); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := svc.SetBudget(b); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		zlog.Info().Str("profile", string(b.AdaptiveProfile)).Msg("budget replaced")
		writeJSON(w, svc.Budget())
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}
