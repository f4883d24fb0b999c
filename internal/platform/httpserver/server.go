package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	accesscontrol "gatekeeper/contexts/identity-access/access-control"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "gatekeeper/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	access accesscontrol.Module
}

func New(
	access accesscontrol.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		access: access,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/access/v1/check", s.handleAccessCheck)
	s.mux.HandleFunc("POST /api/access/v1/check-batch", s.handleAccessCheckBatch)
	s.mux.HandleFunc("GET /api/access/v1/policy", s.handleAccessGetPolicy)
	s.mux.HandleFunc("POST /api/access/v1/permissions", s.handleAccessAddPermission)
	s.mux.HandleFunc("PUT /api/access/v1/groups/{group_name}", s.handleAccessReplaceGroup)
	s.mux.HandleFunc("POST /api/access/v1/exceptions", s.handleAccessAddException)
	s.mux.HandleFunc("PUT /api/access/v1/enforcement", s.handleAccessSetEnforcement)

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness is the rule-table integrity audit: a process serving a corrupt
// policy table must drop out of rotation.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.access.Handler.AuditHandler(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "fail"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
