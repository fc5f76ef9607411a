// Package health serves the runner's status and metrics over HTTP.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusFunc returns the runner's current status for the /status payload.
type StatusFunc func() any

// ProxyStatsFunc returns the proxy pool snapshot for the /status payload.
type ProxyStatsFunc func() any

// CheckFunc probes a dependency (database, redis). nil checks are skipped.
type CheckFunc func(ctx context.Context) error

// Server provides HTTP endpoints for status monitoring.
type Server struct {
	status  StatusFunc
	proxies ProxyStatsFunc
	checks  map[string]CheckFunc
	server  *http.Server
}

// NewServer creates a new status server.
func NewServer(port int, status StatusFunc, proxies ProxyStatsFunc, checks map[string]CheckFunc) *Server {
	mux := http.NewServeMux()
	s := &Server{
		status:  status,
		proxies: proxies,
		checks:  checks,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	failures := map[string]string{}

	for name, check := range s.checks {
		if check == nil {
			continue
		}
		if err := check(r.Context()); err != nil {
			status = "degraded"
			failures[name] = err.Error()
		}
	}

	response := map[string]any{"status": status}
	if len(failures) > 0 {
		response["failures"] = failures
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"runner": s.status(),
	}
	if s.proxies != nil {
		response["proxies"] = s.proxies()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
