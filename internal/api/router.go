package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"convobot-backend/internal/config"
	"convobot-backend/internal/handlers"
)

// proxyPaths serve the chat proxy. It answers its own preflights with a fixed
// permissive CORS set, so the configurable CORS middleware skips them.
var proxyPaths = []string{"/api/chat", "/.netlify/functions/chat"}

// skipPaths applies mw to every request except those for the given paths.
func skipPaths(mw func(http.Handler) http.Handler, paths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range paths {
				if r.URL.Path == p {
					next.ServeHTTP(w, r)
					return
				}
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

// RouterDependencies holds the handlers and configuration the router mounts.
type RouterDependencies struct {
	ProxyHandler        *handlers.ProxyHandler
	SessionHandler      *handlers.SessionHandler
	ConversationHandler *handlers.ConversationHandler
	SettingsHandler     *handlers.SettingsHandler
	FormatHandler       *handlers.FormatHandler
	Config              *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	// No request timeout: a chat turn runs to completion once accepted, bounded
	// only by the server's WriteTimeout and the provider transport.

	r.Use(skipPaths(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}), proxyPaths...))

	limiter := NewIPRateLimiter(deps.Config.RateLimitRPS, deps.Config.RateLimitBurst)

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if deps.ProxyHandler != nil {
		for _, p := range proxyPaths {
			r.With(limiter.Middleware).Handle(p, deps.ProxyHandler)
		}
	} else {
		log.Warn().Str("component", "api").Msg("ProxyHandler dependency is nil, skipping proxy routes")
	}

	r.Route("/v1", func(r chi.Router) {
		if deps.FormatHandler != nil {
			r.Post("/format", deps.FormatHandler.HandleFormat)
		}
		if deps.SessionHandler == nil {
			panic("SessionHandler dependency is nil in router setup")
		}
		r.With(limiter.Middleware).Post("/sessions", deps.SessionHandler.HandleCreateSession)

		// --- Session Routes (token required) ---
		r.Group(func(r chi.Router) {
			r.Use(SessionAuthMiddleware(deps.Config.SessionSecret))

			if deps.ConversationHandler != nil {
				r.Route("/conversation", func(r chi.Router) {
					r.Get("/", deps.ConversationHandler.HandleGetConversation)
					r.Delete("/", deps.ConversationHandler.HandleClearConversation)
					r.With(limiter.Middleware).Post("/messages", deps.ConversationHandler.HandleSendMessage)
				})
			} else {
				log.Warn().Str("component", "api").Msg("ConversationHandler dependency is nil, skipping /v1/conversation routes")
			}

			if deps.SettingsHandler != nil {
				r.Get("/settings", deps.SettingsHandler.HandleGetSettings)
				r.Put("/settings", deps.SettingsHandler.HandleUpdateSettings)
				r.Get("/theme", deps.SettingsHandler.HandleGetTheme)
				r.Put("/theme", deps.SettingsHandler.HandleUpdateTheme)
			} else {
				log.Warn().Str("component", "api").Msg("SettingsHandler dependency is nil, skipping /v1/settings routes")
			}
		})
	})

	return r
}
