package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"convobot-backend/internal/format"
	"convobot-backend/internal/models"
	"convobot-backend/pkg/httputil"
)

type SessionHandler struct {
	sessions  SessionService
	formatter *format.Formatter
}

func NewSessionHandler(sessions SessionService, formatter *format.Formatter) *SessionHandler {
	return &SessionHandler{sessions: sessions, formatter: formatter}
}

// HandleCreateSession handles POST /v1/sessions.
func (h *SessionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	token, cs, err := h.sessions.CreateSession(r.Context())
	if err != nil {
		log.Error().Str("component", "handlers").Err(err).Msg("failed to create session")
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, models.CreateSessionResponse{
		Token:     token,
		SessionID: cs.ID.String(),
		Messages:  toMessageResponses(h.formatter, cs.Chat.Conversation().Messages()),
	})
}
