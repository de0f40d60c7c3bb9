package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"convobot-backend/internal/format"
	"convobot-backend/internal/models"
	"convobot-backend/internal/settings"
	"convobot-backend/pkg/httputil"
)

type SettingsHandler struct {
	sessions  SessionService
	formatter *format.Formatter
}

func NewSettingsHandler(sessions SessionService, formatter *format.Formatter) *SettingsHandler {
	return &SettingsHandler{sessions: sessions, formatter: formatter}
}

func toSettingsResponse(s settings.Settings) models.SettingsResponse {
	return models.SettingsResponse{
		APIKeySet:   s.APIKey != "",
		APIKeyHint:  s.KeyHint(),
		APIEndpoint: s.APIEndpoint,
		CustomURL:   s.CustomURL,
	}
}

// HandleGetSettings handles GET /v1/settings. The API key is never returned.
func (h *SettingsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	cs := sessionFromRequest(w, r, h.sessions)
	if cs == nil {
		return
	}
	s, err := cs.Settings.Load(r.Context())
	if err != nil {
		log.Error().Str("component", "handlers").Err(err).Msg("failed to load settings")
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toSettingsResponse(s))
}

// HandleUpdateSettings handles PUT /v1/settings.
func (h *SettingsHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	cs := sessionFromRequest(w, r, h.sessions)
	if cs == nil {
		return
	}

	var req models.SettingsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	s, msg, err := h.sessions.UpdateSettings(r.Context(), cs, settings.Patch{
		APIKey:      req.APIKey,
		APIEndpoint: req.APIEndpoint,
		CustomURL:   req.CustomURL,
	})
	if err != nil {
		if errors.Is(err, settings.ErrInvalidEndpoint) {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid API endpoint")
			return
		}
		log.Error().Str("component", "handlers").Err(err).Msg("failed to save settings")
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, struct {
		models.SettingsResponse
		Message models.MessageResponse `json:"message"`
	}{toSettingsResponse(s), toMessageResponse(h.formatter, msg)})
}

// HandleGetTheme handles GET /v1/theme.
func (h *SettingsHandler) HandleGetTheme(w http.ResponseWriter, r *http.Request) {
	cs := sessionFromRequest(w, r, h.sessions)
	if cs == nil {
		return
	}
	theme, err := cs.Settings.Theme(r.Context())
	if err != nil {
		log.Error().Str("component", "handlers").Err(err).Msg("failed to load theme")
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to load theme")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.ThemeResponse{Theme: string(theme)})
}

// HandleUpdateTheme handles PUT /v1/theme.
func (h *SettingsHandler) HandleUpdateTheme(w http.ResponseWriter, r *http.Request) {
	cs := sessionFromRequest(w, r, h.sessions)
	if cs == nil {
		return
	}

	var req models.ThemeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	theme, err := settings.ParseTheme(req.Theme)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := cs.Settings.SetTheme(r.Context(), theme); err != nil {
		log.Error().Str("component", "handlers").Err(err).Msg("failed to save theme")
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to save theme")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.ThemeResponse{Theme: string(theme)})
}
