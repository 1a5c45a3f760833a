package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/piccolo-io/piccolo/api/pullpiri"
	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/errdefs"
	"github.com/piccolo-io/piccolo/pkg/log"
	"github.com/piccolo-io/piccolo/pkg/metrics"
	"github.com/piccolo-io/piccolo/pkg/registry"
	"github.com/piccolo-io/piccolo/pkg/statemanager"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// AgentDispatcher fans master-initiated calls out to node agents.
// Implemented by pkg/api's per-node channel pool; nil disables the
// artifact and agent-health routes.
type AgentDispatcher interface {
	HandleArtifact(ctx context.Context, nodeName string, artifact *pullpiri.ArtifactInfo) error
	RemoveArtifact(ctx context.Context, nodeName, artifactID string) error
	HealthCheck(ctx context.Context, nodeName string) error
}

// Server is the cluster-admin HTTP surface. Handlers are thin translators
// onto registry, state manager and agent-dispatch operations.
type Server struct {
	registry *registry.Registry
	states   *statemanager.Manager
	agents   AgentDispatcher
	router   *mux.Router
	http     *http.Server
	logger   zerolog.Logger
}

// NewServer creates the REST server.
func NewServer(reg *registry.Registry, states *statemanager.Manager, agents AgentDispatcher, cfg config.Master) *Server {
	s := &Server{
		registry: reg,
		states:   states,
		agents:   agents,
		router:   mux.NewRouter(),
		logger:   log.WithComponent("rest"),
	}

	s.routes()

	s.http = &http.Server{
		Addr:         cfg.RESTAddr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/cluster/health", s.handleClusterHealth).Methods(http.MethodGet)
	api.HandleFunc("/nodes", s.handleListNodes).Methods(http.MethodGet)
	api.HandleFunc("/nodes", s.handleRegisterNode).Methods(http.MethodPost)
	api.HandleFunc("/nodes/{id}", s.handleGetNode).Methods(http.MethodGet)
	api.HandleFunc("/nodes/{id}", s.handleDeregisterNode).Methods(http.MethodDelete)
	api.HandleFunc("/nodes/{id}/status", s.handleNodeStatus).Methods(http.MethodPost)
	api.HandleFunc("/nodes/{id}/artifacts", s.handleArtifactPush).Methods(http.MethodPost)
	api.HandleFunc("/nodes/{id}/artifacts/{artifact_id}", s.handleArtifactRemove).Methods(http.MethodDelete)
	api.HandleFunc("/nodes/{id}/health", s.handleAgentHealth).Methods(http.MethodGet)
	api.HandleFunc("/topology", s.handleTopology).Methods(http.MethodGet)
	api.HandleFunc("/resources/{kind}/{name}/state", s.handleQueryState).Methods(http.MethodGet)

	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

// Start serves HTTP on the configured address. It blocks until Stop.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("REST API listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests for up to 10 seconds.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ClusterHealth is the aggregated health view: node counts by status.
type ClusterHealth struct {
	Nodes   int                      `json:"nodes"`
	Healthy bool                     `json:"healthy"`
	Counts  map[types.NodeStatus]int `json:"counts"`
}

func (s *Server) handleClusterHealth(w http.ResponseWriter, r *http.Request) {
	counts, err := s.registry.Health(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	unhealthy := counts[types.NodeStatusOffline] + counts[types.NodeStatusError]
	s.writeJSON(w, http.StatusOK, ClusterHealth{
		Nodes:   total,
		Healthy: unhealthy == 0,
		Counts:  counts,
	})
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.registry.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

// registerBody mirrors the Node data model for admin-driven registration.
type registerBody struct {
	NodeName  string              `json:"node_name"`
	IPAddress string              `json:"ip_address"`
	Role      types.NodeRole      `json:"role"`
	Resources types.NodeResources `json:"resources"`
	Labels    map[string]string   `json:"labels"`
}

func (s *Server) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, errdefs.InvalidArgument("invalid request body: %v", err))
		return
	}
	node, err := s.registry.Register(r.Context(), registry.RegisterSpec{
		NodeName:  body.NodeName,
		IPAddress: body.IPAddress,
		Role:      body.Role,
		Resources: body.Resources,
		Labels:    body.Labels,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.registry.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleDeregisterNode(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Deregister(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusBody struct {
	Status types.NodeStatus `json:"status"`
}

func (s *Server) handleNodeStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, errdefs.InvalidArgument("invalid request body: %v", err))
		return
	}
	if err := s.registry.StatusUpdate(r.Context(), mux.Vars(r)["id"], body.Status); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// agentNode resolves the {id} path segment to a node record, for routes
// that forward to the node's agent.
func (s *Server) agentNode(w http.ResponseWriter, r *http.Request) (*types.Node, bool) {
	if s.agents == nil {
		s.writeError(w, errdefs.Unavailable(nil, "agent dispatch is not configured"))
		return nil, false
	}
	node, err := s.registry.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return node, true
}

func (s *Server) handleArtifactPush(w http.ResponseWriter, r *http.Request) {
	node, ok := s.agentNode(w, r)
	if !ok {
		return
	}
	var artifact pullpiri.ArtifactInfo
	if err := json.NewDecoder(r.Body).Decode(&artifact); err != nil {
		s.writeError(w, errdefs.InvalidArgument("invalid request body: %v", err))
		return
	}
	if artifact.ArtifactID == "" {
		s.writeError(w, errdefs.InvalidArgument("artifact_id is required"))
		return
	}
	if err := s.agents.HandleArtifact(r.Context(), node.NodeName, &artifact); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleArtifactRemove(w http.ResponseWriter, r *http.Request) {
	node, ok := s.agentNode(w, r)
	if !ok {
		return
	}
	if err := s.agents.RemoveArtifact(r.Context(), node.NodeName, mux.Vars(r)["artifact_id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAgentHealth(w http.ResponseWriter, r *http.Request) {
	node, ok := s.agentNode(w, r)
	if !ok {
		return
	}
	if err := s.agents.HealthCheck(r.Context(), node.NodeName); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"node_name": node.NodeName,
		"status":    "ok",
	})
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	topo, err := s.registry.Topology(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, topo)
}

type stateBody struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	State string `json:"state"`
}

func (s *Server) handleQueryState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	state, err := s.states.QueryState(r.Context(), types.ResourceKind(vars["kind"]), vars["name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stateBody{
		Kind:  vars["kind"],
		Name:  vars["name"],
		State: state,
	})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errdefs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, status, errorBody{
		Error: err.Error(),
		Code:  string(errdefs.CodeOf(err)),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("response encode failed")
	}
}
