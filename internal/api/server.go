package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kinbot/kinbot/internal/service"
)

// Server provides the HTTP API: health, metrics and read-only views of the
// family data.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	ready  func() bool
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it. The
// ready func reports whether the bot is polling for updates.
func NewServer(svc *service.Service, logger *logrus.Logger, ready func() bool) *Server {
	s := &Server{svc: svc, logger: logger, ready: ready, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/marriages", s.handleGetMarriages)
	s.mux.HandleFunc("GET /api/family-tree", s.handleGetFamilyTree)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// requireQueryID reads an int64 query parameter.  It writes an error
// response and returns false when the parameter is absent or invalid.
func (s *Server) requireQueryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		s.respondError(w, http.StatusBadRequest, name+" query parameter is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return id, true
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil && !s.ready() {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Marriages
// ---------------------------------------------------------------------------

func (s *Server) handleGetMarriages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireQueryID(w, r, "chat_id")
	if !ok {
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			s.respondError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = p
	}

	list, err := s.svc.Marriage.List(r.Context(), chatID, page, 20)
	if err != nil {
		s.logger.WithField("chat_id", chatID).WithError(err).Error("failed to list marriages")
		s.respondError(w, http.StatusInternalServerError, "failed to list marriages")
		return
	}

	s.respondJSON(w, http.StatusOK, list)
}

// ---------------------------------------------------------------------------
// Family tree
// ---------------------------------------------------------------------------

// treeNodeJSON is the wire form of a family tree outline entry.
type treeNodeJSON struct {
	MarriageID int64            `json:"marriage_id"`
	Depth      int              `json:"depth"`
	Reference  bool             `json:"reference"`
	Members    []treeMemberJSON `json:"members,omitempty"`
}

type treeMemberJSON struct {
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	IsMe         bool   `json:"is_me,omitempty"`
	IsPartner    bool   `json:"is_partner,omitempty"`
	AdoptionNote string `json:"adoption_note,omitempty"`
}

func (s *Server) handleGetFamilyTree(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireQueryID(w, r, "chat_id")
	if !ok {
		return
	}
	userID, ok := s.requireQueryID(w, r, "user_id")
	if !ok {
		return
	}

	roots, err := s.svc.FamilyTree(r.Context(), chatID, userID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).WithError(err).Error("failed to build family tree")
		s.respondError(w, http.StatusInternalServerError, "failed to build family tree")
		return
	}
	if roots == nil {
		s.respondError(w, http.StatusNotFound, "user is not in a family")
		return
	}

	entries := service.Outline(roots)
	out := make([]treeNodeJSON, 0, len(entries))
	for _, e := range entries {
		node := treeNodeJSON{
			MarriageID: e.Node.Key(),
			Depth:      e.Depth,
			Reference:  e.Reference,
		}
		if !e.Reference {
			node.Members = make([]treeMemberJSON, 0, len(e.Node.Members))
			for _, m := range e.Node.Members {
				node.Members = append(node.Members, treeMemberJSON{
					UserID:       m.UserID,
					Name:         m.Name,
					IsMe:         m.IsMe,
					IsPartner:    m.IsPartner,
					AdoptionNote: m.AdoptionNote,
				})
			}
		}
		out = append(out, node)
	}

	s.respondJSON(w, http.StatusOK, out)
}
