// Package api serves a finished replay over HTTP.
// The snapshot is immutable once the server is built, so handlers need no
// locking.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutu-network/ledger/internal/domain"
)

// Server is the read-only ledger HTTP API.
type Server struct {
	snap     domain.Snapshot
	places   int32
	runID    string
	gatherer prometheus.Gatherer // nil disables /metrics
}

// NewServer creates a server over snap, printing amounts with places
// fractional digits.
func NewServer(snap domain.Snapshot, places int32) *Server {
	return &Server{snap: snap, places: places}
}

// EnableMetrics exposes /metrics from the given gatherer.
func (s *Server) EnableMetrics(g prometheus.Gatherer) { s.gatherer = g }

// SetRunID tags responses with the replay run id.
func (s *Server) SetRunID(id string) { s.runID = id }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/run", s.handleRun)
		r.Get("/accounts", s.handleListAccounts)
		r.Get("/accounts/{client}", s.handleGetAccount)
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// accountJSON is the wire shape of an account: decimals as fixed strings so
// no precision is lost in JSON numbers.
type accountJSON struct {
	Client    domain.ClientID `json:"client"`
	Available string          `json:"available"`
	Held      string          `json:"held"`
	Total     string          `json:"total"`
	Locked    bool            `json:"locked"`
}

func (s *Server) toJSON(a domain.Account) accountJSON {
	return accountJSON{
		Client:    a.Client,
		Available: a.Available.StringFixed(s.places),
		Held:      a.Held.StringFixed(s.places),
		Total:     a.Total.StringFixed(s.places),
		Locked:    a.Locked,
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":   s.runID,
		"accounts": len(s.snap),
		"locked":   s.snap.LockedCount(),
	})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	out := make([]accountJSON, 0, len(s.snap))
	for _, a := range s.snap {
		if r.URL.Query().Get("locked") == "true" && !a.Locked {
			continue
		}
		out = append(out, s.toJSON(a))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": out,
	})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "client")
	id, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidClient.Error())
		return
	}
	a, ok := s.snap.Find(domain.ClientID(id))
	if !ok {
		writeError(w, http.StatusNotFound, "client "+raw+" not found")
		return
	}
	writeJSON(w, http.StatusOK, s.toJSON(a))
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}
