package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/pixelguess/go/internal/game/actors"
	"github.com/mcdev12/pixelguess/go/internal/round"
	"github.com/mcdev12/pixelguess/go/internal/session"
	"github.com/rs/zerolog/log"
)

// StateHandler serves the REST surface over game sessions
type StateHandler struct {
	sessions Sessions
	registry *actors.Registry
}

// NewStateHandler creates a new state handler
func NewStateHandler(sessions Sessions, registry *actors.Registry) *StateHandler {
	return &StateHandler{
		sessions: sessions,
		registry: registry,
	}
}

// SessionStateResponse is the state of one session
type SessionStateResponse struct {
	SessionID string       `json:"session_id"`
	CreatedAt time.Time    `json:"created_at"`
	State     SnapshotView `json:"state"`
}

// SessionSummary is one entry of the session list
type SessionSummary struct {
	SessionID string `json:"session_id"`
	Played    uint   `json:"played"`
	Correct   uint   `json:"correct"`
	Open      bool   `json:"open"`
}

// ChoiceRequest is the body of a choice request
type ChoiceRequest struct {
	Actor string `json:"actor"`
}

// RegisterStateRoutes registers the session REST routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions", h.HandleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}/state", h.HandleGetState)
	mux.HandleFunc("POST /api/sessions/{id}/reset", h.HandleReset)
	mux.HandleFunc("POST /api/sessions/{id}/choice", h.HandleChoice)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleCloseSession)
}

// HandleCreateSession starts a new session
func (h *StateHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, h.stateResponse(sess))
}

// HandleListSessions lists the live sessions
func (h *StateHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	list := h.sessions.List()
	out := make([]SessionSummary, 0, len(list))
	for _, sess := range list {
		snap := sess.Snapshot()
		out = append(out, SessionSummary{
			SessionID: sess.ID.String(),
			Played:    snap.Round.Played,
			Correct:   snap.Round.Correct,
			Open:      snap.Round.Open,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": out,
		"count":    len(out),
	})
}

// HandleGetState returns the current state of a session
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.stateResponse(sess))
}

// HandleReset opens the next round
func (h *StateHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.Reset(r.Context()); err != nil {
		h.writeCommandError(w, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateResponse(sess))
}

// HandleChoice submits a choice of actor
func (h *StateHandler) HandleChoice(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := sess.Choose(r.Context(), req.Actor); err != nil {
		h.writeCommandError(w, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateResponse(sess))
}

// HandleCloseSession ends a session
func (h *StateHandler) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Close(sess.ID); err != nil {
		h.writeCommandError(w, sess.ID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StateHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID format")
		return nil, false
	}

	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (h *StateHandler) stateResponse(sess *session.Session) SessionStateResponse {
	return SessionStateResponse{
		SessionID: sess.ID.String(),
		CreatedAt: sess.CreatedAt,
		State:     NewSnapshotView(h.registry, sess.Snapshot()),
	}
}

func (h *StateHandler) writeCommandError(w http.ResponseWriter, sessionID uuid.UUID, err error) {
	switch {
	case errors.Is(err, actors.ErrUnknownActor):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, round.ErrRoundClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, round.ErrStopped):
		writeError(w, http.StatusNotFound, "session not found")
	default:
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("session command failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorPayload{Message: message})
}
