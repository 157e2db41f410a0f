package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/toolscout-ai/toolscout/internal/event"
	"github.com/toolscout-ai/toolscout/internal/logging"
	"github.com/toolscout-ai/toolscout/internal/registry"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

// SessionResponse describes a created session.
type SessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageRequest is the body of a chat turn.
type MessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse carries the assistant's reply.
type MessageResponse struct {
	Reply string `json:"reply"`
}

// ConnectedServer describes one of a session's live connections.
type ConnectedServer struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ToolCount   int    `json:"toolCount"`
}

// CatalogResponse is the catalog listing.
type CatalogResponse struct {
	Servers   []types.ServerDescriptor `json:"servers"`
	CreatedAt time.Time                `json:"createdAt"`
}

// createSession starts a new chat session.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Create()

	s.bus.Publish(event.Event{
		Type: event.SessionCreated,
		Data: event.SessionCreatedData{SessionID: sess.ID},
	})

	writeJSON(w, http.StatusOK, SessionResponse{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
	})
}

// deleteSession drops a session and closes its connections.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, ok := s.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	s.registry.Remove(id)
	writeSuccess(w)
}

// sendMessage runs one chat turn for the session.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "text is required")
		return
	}

	reply, err := s.chat.HandleTurn(r.Context(), sess, req.Text)
	if err != nil {
		log := logging.Component("server")
		log.Error().
			Str("session", sess.ID).
			Err(err).
			Msg("chat turn failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Reply: reply})
}

// listSessionServers lists the session's connected servers.
func (s *Server) listSessionServers(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	conns := sess.Connections()
	out := make([]ConnectedServer, 0, len(conns))
	for _, c := range conns {
		out = append(out, ConnectedServer{
			Name:        c.Server.Name,
			Description: c.Server.Description,
			ToolCount:   len(c.Tools),
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// listCatalog returns the known server catalog. Pass refresh=true to bypass
// the snapshot cache.
func (s *Server) listCatalog(w http.ResponseWriter, r *http.Request) {
	useCache := r.URL.Query().Get("refresh") != "true"
	snapshot := s.catalog.Servers(r.Context(), useCache)

	writeJSON(w, http.StatusOK, CatalogResponse{
		Servers:   snapshot.Servers,
		CreatedAt: snapshot.CreatedAt,
	})
}

// health reports liveness.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"sessions": s.registry.Count(),
	})
}

// session resolves the sessionID route parameter, writing a 404 on miss.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*registry.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return nil, false
	}
	return sess, true
}
