package handlers

import (
	"encoding/json"
	"net/http"

	"convobot-backend/internal/format"
	"convobot-backend/internal/models"
	"convobot-backend/pkg/httputil"
)

type FormatHandler struct {
	formatter *format.Formatter
}

func NewFormatHandler(formatter *format.Formatter) *FormatHandler {
	return &FormatHandler{formatter: formatter}
}

// HandleFormat handles POST /v1/format.
func (h *FormatHandler) HandleFormat(w http.ResponseWriter, r *http.Request) {
	var req models.FormatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	rendered := h.formatter.Format(req.Text)
	httputil.RespondJSON(w, http.StatusOK, models.FormatResponse{
		HTML:       rendered.HTML,
		CodeBlocks: toCodeBlocks(rendered.CodeBlocks),
	})
}
