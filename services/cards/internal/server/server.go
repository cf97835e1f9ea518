package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bizcards/internal/ratelimit"
	"bizcards/internal/util"
	"bizcards/services/cards/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                       *app.App
	MaxUploadBytes            int64
	RedisAddr                 string
	RedisPassword             string
	ExtractRateLimitPerMinute int
	TrustedProxyCIDRs         []string
}

// Server exposes HTTP endpoints for the card service.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	maxUploadBytes int64
	extractLimiter *ratelimit.FixedWindowLimiter
	trusted        *util.TrustedProxies
}

// New constructs the server with routes configured. The extraction rate
// limit is enabled only when a redis address is configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
		trusted:        trusted,
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		limit := cfg.ExtractRateLimitPerMinute
		if limit <= 0 {
			limit = 20
		}
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "bizcards:ratelimit:extract", limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init extract limiter: %w", err)
		}
		s.extractLimiter = limiter
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("cards", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

// Close releases the rate limiter connection.
func (s *Server) Close() error {
	if s.extractLimiter != nil {
		return s.extractLimiter.Close()
	}
	return nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// cards
	s.mux.HandleFunc("/cards", s.handleCards)
	s.mux.HandleFunc("/cards/", s.handleCardByID)
	s.mux.HandleFunc("/uploads/images/", s.handleImage)

	// extraction
	s.mux.HandleFunc("/api/extract", s.handleExtract)
	s.mux.HandleFunc("/api/gemini-key", s.handleGeminiKey)
	s.mux.HandleFunc("/api/save-gemini-key", s.handleSaveGeminiKey)
	s.mux.HandleFunc("/api/get-gemini-key", s.handleGetGeminiKey)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFound(w, "not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Server is running!"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storeStatus := "ok"
	if err := s.app.Ping(r.Context()); err != nil {
		util.LoggerFromContext(r.Context()).Warn("store ping failed", "err", err)
		storeStatus = "error"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": storeStatus})
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if limiter.Allow(r.Context(), key) {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(limiter.Window().Seconds())))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}
