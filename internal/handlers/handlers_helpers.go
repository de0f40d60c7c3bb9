package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"convobot-backend/internal/auth"
	"convobot-backend/internal/format"
	"convobot-backend/internal/models"
	"convobot-backend/internal/services"
	"convobot-backend/internal/settings"
	"convobot-backend/pkg/httputil"
)

// maxBodyBytes bounds request bodies; messages are capped at 1000 characters.
const maxBodyBytes = 64 << 10

// SessionService defines the interface expected from the session service.
type SessionService interface {
	CreateSession(ctx context.Context) (string, *services.ChatSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*services.ChatSession, error)
	UpdateSettings(ctx context.Context, cs *services.ChatSession, p settings.Patch) (settings.Settings, models.Message, error)
}

// sessionFromRequest resolves the session named by the request's token.
// It writes the error response itself and returns nil on failure.
func sessionFromRequest(w http.ResponseWriter, r *http.Request, svc SessionService) *services.ChatSession {
	id, ok := auth.GetSessionIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil
	}
	cs, err := svc.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return nil
		}
		log.Error().Str("component", "handlers").Err(err).Str("session_id", id.String()).Msg("failed to load session")
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to load session")
		return nil
	}
	return cs
}

func toCodeBlocks(blocks []format.CodeBlock) []models.CodeBlockResponse {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]models.CodeBlockResponse, len(blocks))
	for i, b := range blocks {
		out[i] = models.CodeBlockResponse{ID: b.ID, Language: b.Language, Code: b.Code}
	}
	return out
}

func toMessageResponse(f *format.Formatter, m models.Message) models.MessageResponse {
	rendered := f.Format(m.Content)
	return models.MessageResponse{
		Content:    m.Content,
		Sender:     m.Sender,
		Time:       m.Time,
		HTML:       rendered.HTML,
		CodeBlocks: toCodeBlocks(rendered.CodeBlocks),
	}
}

func toMessageResponses(f *format.Formatter, msgs []models.Message) []models.MessageResponse {
	out := make([]models.MessageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = toMessageResponse(f, m)
	}
	return out
}
