package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nexuslab/nexus/internal/log"
	"github.com/nexuslab/nexus/internal/session"
)

// Responder handles one user message for a session, streaming the answer.
// Implemented by advisor.Advisor.
type Responder interface {
	Respond(ctx context.Context, sess *session.Session, message string) <-chan string
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
	Profile *struct {
		Major    *string `json:"major"`
		Ambition *string `json:"ambition"`
	} `json:"profile"`
}

// chatHandler serves the conversational endpoints.
type chatHandler struct {
	advisor  Responder
	sessions *session.Manager
	logger   log.Logger
}

// chat handles POST /api/v1/chat: it validates input synchronously, then
// streams the generated answer as chunked plain text. Fragments are flushed
// as they arrive so the caller observes latency proportional to generation.
func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "no message provided")
		return
	}

	sessionID, ok := sessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "no_session", "session not established")
		return
	}
	sess := h.sessions.Get(sessionID)

	if req.Profile != nil {
		sess.ApplyProfile(req.Profile.Major, req.Profile.Ambition)
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "no_streaming", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	for fragment := range h.advisor.Respond(ctx, sess, message) {
		if _, err := w.Write([]byte(fragment)); err != nil {
			// Write failure means the client is gone; the advisor notices
			// through ctx and stops producing.
			h.logger.Debug("client disconnected mid-stream", "error", err)
			return
		}
		flusher.Flush()
	}
}

// clear handles POST /api/v1/clear: it resets the caller's session state
// (history, profile, pending flag).
func (h *chatHandler) clear(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "no_session", "session not established")
		return
	}
	h.sessions.Get(sessionID).Clear()
	h.logger.Debug("session cleared", "session", sessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
