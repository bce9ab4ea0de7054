package www

import (
	"log/slog"
	"net/http"

	"github.com/wattshare/wattshare-go/users"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.UserID != "" {
		writeJSON(w, http.StatusConflict, errorBody{Error: "user is already registered"})
		return
	}

	user, err := s.users.Register(r.Context(), p.ExternalID, p.Email)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := s.users.FindByID(r.Context(), p.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	notifications, err := s.notify.List(r.Context(), p.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// handleReconcileRoles lets an operator repair a drifted role ledger.
func (s *Server) handleReconcileRoles(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !users.HasRole(p.Roles, users.RoleAdmin) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "admin role required"})
		return
	}

	granted, revoked, err := s.users.ReconcileRoles(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]users.Role{
		"granted": granted,
		"revoked": revoked,
	})
}

// handleLogEntries pages through the persisted application log, newest
// first.
func (s *Server) handleLogEntries(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !users.HasRole(p.Roles, users.RoleAdmin) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "admin role required"})
		return
	}

	level := intOrDefault(r.URL, "level", int(slog.LevelInfo))
	page := intOrDefault(r.URL, "page", 1)
	pageSize := intOrDefault(r.URL, "pageSize", 50)

	entries, err := s.db.GetLogEntries(r.Context(), slog.Level(level), page, pageSize)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleProcessNotification(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Accept bool `json:"accept"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}

	err := s.communities.ProcessRequest(r.Context(), p.UserID, r.PathValue("id"), body.Accept)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
