package handlers

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"convobot-backend/internal/proxy"
)

// ProxyHandler serves the chat proxy endpoint over HTTP.
type ProxyHandler struct {
	proxy *proxy.Handler
}

func NewProxyHandler(p *proxy.Handler) *ProxyHandler {
	return &ProxyHandler{proxy: p}
}

// ServeHTTP accepts every method; the proxy decides which are allowed.
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Str("component", "proxy").Err(err).Msg("failed to read proxy request body")
		body = nil
	}
	defer r.Body.Close()

	resp := h.proxy.Handle(r.Context(), r.Method, string(body))
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}
