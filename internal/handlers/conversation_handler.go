package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"convobot-backend/internal/format"
	"convobot-backend/internal/models"
	"convobot-backend/internal/orchestrator"
	"convobot-backend/internal/services"
	"convobot-backend/pkg/httputil"
)

type ConversationHandler struct {
	sessions  SessionService
	formatter *format.Formatter
}

func NewConversationHandler(sessions SessionService, formatter *format.Formatter) *ConversationHandler {
	return &ConversationHandler{sessions: sessions, formatter: formatter}
}

func (h *ConversationHandler) conversationResponse(cs *services.ChatSession) models.ConversationResponse {
	return models.ConversationResponse{
		Messages:         toMessageResponses(h.formatter, cs.Chat.Conversation().Messages()),
		AwaitingResponse: cs.Chat.State() == orchestrator.AwaitingResponse,
	}
}

// HandleGetConversation handles GET /v1/conversation.
func (h *ConversationHandler) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	cs := sessionFromRequest(w, r, h.sessions)
	if cs == nil {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.conversationResponse(cs))
}

// HandleSendMessage handles POST /v1/conversation/messages. Ignored
// submissions (blank, or a reply already in flight) get 204.
func (h *ConversationHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	cs := sessionFromRequest(w, r, h.sessions)
	if cs == nil {
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	res, err := cs.Chat.Submit(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyMessage) || errors.Is(err, orchestrator.ErrBusy) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		log.Error().Str("component", "handlers").Err(err).Msg("failed to submit message")
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SendMessageResponse{
		User:  toMessageResponse(h.formatter, res.User),
		Reply: toMessageResponse(h.formatter, res.Reply),
	})
}

// HandleClearConversation handles DELETE /v1/conversation.
func (h *ConversationHandler) HandleClearConversation(w http.ResponseWriter, r *http.Request) {
	cs := sessionFromRequest(w, r, h.sessions)
	if cs == nil {
		return
	}

	if err := cs.Chat.Clear(r.Context()); err != nil {
		if errors.Is(err, orchestrator.ErrBusy) {
			httputil.RespondError(w, http.StatusConflict, "A reply is still in progress")
			return
		}
		log.Error().Str("component", "handlers").Err(err).Msg("failed to clear conversation")
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to clear conversation")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.conversationResponse(cs))
}
