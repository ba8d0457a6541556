package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pgraft/pgraft/pkg/command"
	"github.com/pgraft/pgraft/pkg/events"
	"github.com/pgraft/pgraft/pkg/log"
	"github.com/pgraft/pgraft/pkg/metrics"
	"github.com/pgraft/pgraft/pkg/monitor"
	"github.com/pgraft/pgraft/pkg/pgerrors"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/types"
	"github.com/rs/zerolog"
)

// Envelope is the JSON shape of every control-surface response.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Server is the daemon's local HTTP control surface.
type Server struct {
	store    *store.Store
	pipeline *command.Pipeline
	monitor  *monitor.Monitor
	broker   *events.Broker
	mux      *http.ServeMux
	logger   zerolog.Logger
}

// New builds a Server wired against the daemon's shared components.
func New(s *store.Store, p *command.Pipeline, m *monitor.Monitor, broker *events.Broker) *Server {
	srv := &Server{
		store:    s,
		pipeline: p,
		monitor:  m,
		broker:   broker,
		mux:      http.NewServeMux(),
		logger:   log.WithComponent("api"),
	}

	srv.mux.HandleFunc("/api/v1/cluster/health", srv.instrument("cluster_health", srv.handleHealth))
	srv.mux.HandleFunc("/api/v1/cluster/status", srv.instrument("cluster_status", srv.handleStatus))
	srv.mux.HandleFunc("/api/v1/cluster/add-node", srv.instrument("cluster_add_node", srv.handleAddNode))
	srv.mux.HandleFunc("/api/v1/cluster/events", srv.handleEvents)
	srv.mux.Handle("/metrics", metrics.Handler())

	return srv
}

// Handler returns the HTTP handler for embedding in the daemon's top-level
// server, or for use directly with httptest in tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the control surface and blocks until the listener fails or the
// server is shut down.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// instrument wraps a handler with the API request-count and duration metrics.
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		metrics.APIRequestsTotal.WithLabelValues(route, fmt.Sprintf("%d", rec.code)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, route)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, Envelope{Status: "error", Message: message})
}

// clusterHealthData is the /api/v1/cluster/health response payload.
type clusterHealthData struct {
	OverallStatus string    `json:"overall_status"`
	HealthyNodes  int       `json:"healthy_nodes"`
	TotalNodes    int       `json:"total_nodes"`
	Quorum        bool      `json:"quorum"`
	LastCheck     time.Time `json:"last_check"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	view := s.store.GetClusterView()

	healthy := 0
	for _, n := range view.Nodes {
		if n.Healthy {
			healthy++
		}
	}
	total := len(view.Nodes)

	overall := "OK"
	if s.monitor != nil {
		overall = string(s.monitor.Level())
	}

	writeJSON(w, http.StatusOK, Envelope{
		Status: "ok",
		Data: clusterHealthData{
			OverallStatus: overall,
			HealthyNodes:  healthy,
			TotalNodes:    total,
			Quorum:        monitor.HasQuorum(healthy, total),
			LastCheck:     time.Now(),
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	view := s.store.GetClusterView()
	writeJSON(w, http.StatusOK, Envelope{Status: "ok", Data: view})
}

// addNodeRequest is the POST /api/v1/cluster/add-node request body.
type addNodeRequest struct {
	NodeID   uint32 `json:"node_id"`
	Hostname string `json:"hostname"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req addNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.NodeID == 0 || req.Address == "" || req.Port <= 0 {
		writeError(w, http.StatusBadRequest, "node_id, address and port are required")
		return
	}

	_, err := s.pipeline.Enqueue(types.Command{
		Type:    types.CommandAddNode,
		NodeID:  req.NodeID,
		Address: req.Address,
		Port:    req.Port,
	})
	if err != nil {
		code := http.StatusInternalServerError
		if pgerrors.Is(err, pgerrors.QueueFull) {
			code = http.StatusServiceUnavailable
		}
		s.logger.Warn().Err(err).Uint32("node_id", req.NodeID).Msg("add-node rejected")
		writeError(w, code, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, Envelope{Status: "ok", Message: "add-node command enqueued"})
}

// handleEvents streams the typed event bus to the client as Server-Sent
// Events; the connection stays open until the client disconnects or the
// broker stops.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if s.broker == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	ctx := r.Context()
	for {
		select {
		case ev, open := <-sub:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
