// Package server exposes the command bridge over local HTTP.
//
//	POST /plugin/analytics/{command}   JSON payload in, {"id","result"} or {"error"} out
//	GET  /healthz
//	GET  /metrics
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kongflow/analytics-bridge/internal/bridge"
	"kongflow/analytics-bridge/internal/config"
	"kongflow/analytics-bridge/internal/logger"
)

// CommandPath is the route prefix for bridge commands.
const CommandPath = "/plugin/analytics"

// Server serves a Dispatcher until its context is cancelled.
type Server struct {
	cfg  config.ServerConfig
	http *http.Server
	log  *logger.Logger
}

func New(cfg config.ServerConfig, d *bridge.Dispatcher, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New("server")
	}
	return &Server{
		cfg: cfg,
		log: log,
		http: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           NewRouter(d, cfg, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// NewRouter builds the chi router.
func NewRouter(d *bridge.Dispatcher, cfg config.ServerConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Invocation-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	h := &commandHandler{dispatcher: d, maxBodyBytes: cfg.MaxBodyBytes}
	r.Route(CommandPath, func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}
		r.Use(chimiddleware.AllowContentType("application/json"))
		r.Post("/{command}", h.ServeHTTP)
	})

	return r
}

// Run listens until ctx is done, then shuts down gracefully within
// ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.cfg.ListenAddr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

type commandHandler struct {
	dispatcher   *bridge.Dispatcher
	maxBodyBytes int64
}

func (h *commandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, bridge.Envelope{Error: bridge.ErrorBody{
			Kind:    bridge.KindValidation,
			Message: err.Error(),
		}})
		return
	}

	resp, err := h.dispatcher.Invoke(r.Context(), command, body)
	if err != nil {
		w.Header().Set("X-Invocation-Id", resp.ID)
		writeJSON(w, StatusFor(bridge.KindOf(err)), bridge.NewEnvelope(err))
		return
	}
	w.Header().Set("X-Invocation-Id", resp.ID)
	writeJSON(w, http.StatusOK, resp)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind bridge.ErrorKind) int {
	switch kind {
	case bridge.KindValidation, bridge.KindBuild:
		return http.StatusBadRequest
	case bridge.KindUnknownCommand:
		return http.StatusNotFound
	case bridge.KindConfiguration:
		return http.StatusServiceUnavailable
	case bridge.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				zl := log.Zerolog()
				zl.Debug().
					Str("request_id", chimiddleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote", r.RemoteAddr).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
