package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hamed0406/pingwatch/internal/domain"
	apimw "github.com/hamed0406/pingwatch/internal/httpapi/middleware"
	"github.com/hamed0406/pingwatch/internal/probe"
	"github.com/hamed0406/pingwatch/internal/repo"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
	historyLimit   = 100
)

// StatusSource is the live view of the monitor.
type StatusSource interface {
	View() (domain.Stats, []domain.Outage)
}

type Server struct {
	Logger *zap.Logger
	Target string
	Status StatusSource

	// Optional: history needs Store, /api/ws needs Feed and the admin stop
	// route needs Stop.
	Store    repo.OutageStore
	Feed     *Feed
	Resolver *net.Resolver
	Stop     func()
}

func NewServer(l *zap.Logger, target string, status StatusSource) *Server {
	return &Server{Logger: l, Target: target, Status: status}
}

// Router builds the API. origins empty means any origin.
func (s *Server) Router(keys apimw.Keys, origins []string, publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "X-API-Key", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))
		r.Use(apimw.RequireAny(keys))

		r.Get("/api/stats", s.handleStats)
		r.Get("/api/outages", s.handleOutages)
		r.Get("/api/outages/history", s.handleHistory)
		r.Get("/api/dns", s.handleDNS)
		r.Get("/api/ws", s.handleWS)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAdmin(keys))
		r.Post("/api/admin/stop", s.handleStop)
	})

	return r
}

type statsResponse struct {
	Target string `json:"target"`
	domain.Stats
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, _ := s.Status.View()
	writeJSON(w, http.StatusOK, statsResponse{Target: s.Target, Stats: stats})
}

func (s *Server) handleOutages(w http.ResponseWriter, r *http.Request) {
	_, outages := s.Status.View()
	if outages == nil {
		outages = []domain.Outage{}
	}
	writeJSON(w, http.StatusOK, outages)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusNotFound, "history not configured")
		return
	}
	limit := historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad limit")
			return
		}
		limit = min(n, 1000)
	}
	rows, err := s.Store.List(r.Context(), s.Target, limit)
	if err != nil {
		s.Logger.Warn("history_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history error")
		return
	}
	if rows == nil {
		rows = []domain.Outage{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleDNS reports how the target currently resolves, the first thing to
// look at during an outage.
func (s *Server) handleDNS(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	_, st := probe.Resolve(ctx, s.Resolver, s.Target)
	s.Logger.Info("dns_check",
		zap.String("host", st.Host),
		zap.String("class", st.Class),
		zap.String("resolver_error", st.ResolverError),
	)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.Stop == nil {
		writeError(w, http.StatusNotImplemented, "stop not available")
		return
	}
	s.Logger.Warn("stop_requested", zap.String("remote", r.RemoteAddr))
	s.Stop()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
	},
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.Feed == nil {
		writeError(w, http.StatusNotFound, "live feed not configured")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveFeed(conn)
}

func (s *Server) serveFeed(conn *websocket.Conn) {
	defer conn.Close()
	updates, release := s.Feed.Subscribe()
	defer release()

	// readers only matter for close frames
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case snap := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
