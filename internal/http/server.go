package httpapi

import (
	"context"
	"net/http"
	"time"

	"mamiland-backend-go/internal/assistant"
	"mamiland-backend-go/internal/config"
	"mamiland-backend-go/internal/metrics"
	"mamiland-backend-go/internal/services"
	"mamiland-backend-go/internal/suggestions"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Server struct {
	DB           *sqlx.DB
	Config       config.Config
	Tokens       services.TokenService
	MetricsHub   *services.MetricsHub
	Attempts     services.AttemptGuard
	Conversation services.Conversation
	Picker       suggestions.Picker
	Now          func() time.Time
}

func NewServer(db *sqlx.DB, cfg config.Config, hub *services.MetricsHub, rdb *redis.Client) *Server {
	tokens := services.TokenService{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		SessionTTL: cfg.SessionTTL,
		GrantTTL:   cfg.AccessGrantTTL,
	}
	return &Server{
		DB:         db,
		Config:     cfg,
		Tokens:     tokens,
		MetricsHub: hub,
		Attempts: services.AttemptGuard{
			Redis:  rdb,
			Limit:  cfg.CodeAttemptLimit,
			Window: cfg.CodeAttemptWindow,
		},
		Conversation: services.Conversation{
			DB:           db,
			Relay:        assistant.Relay{AI: assistant.NewClient(cfg.AIURL, cfg.AITimeout)},
			HistoryLimit: cfg.ChatHistoryLimit,
		},
		Now: time.Now,
	}
}

// Router builds the HTTP handler. Background work started here (the rate
// limiter cleanup) stops when ctx is cancelled.
func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	proxies, err := s.Config.ProxyPrefixes()
	if err != nil {
		log.Warn().Err(err).Msg("ignoring X-Forwarded-For")
		proxies = nil
	}
	r.Use(RealIP(proxies))
	r.Use(RequestLogger)
	r.Use(metrics.Middleware)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	limiter := NewRateLimiter(rate.Limit(s.Config.RateLimitRPS), s.Config.RateLimitBurst, 2*time.Minute)
	go limiter.Run(ctx)

	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.With(limiter.Middleware).Post("/validate-code", s.ValidateCode)
			auth.With(limiter.Middleware).Post("/register", s.Register)
			auth.With(limiter.Middleware).Post("/login", s.Login)
			auth.Post("/logout", s.Logout)

			auth.Group(func(me chi.Router) {
				me.Use(s.WithUserAuth)
				me.Get("/me", s.Me)
				me.Put("/profile", s.UpdateProfile)
			})
		})

		api.Route("/chat", func(chat chi.Router) {
			chat.Use(s.WithUserAuth)
			chat.Get("/sessions", s.ListSessions)
			chat.Post("/sessions", s.CreateSession)
			chat.Delete("/sessions/{sessionId}", s.DeleteSession)
			chat.Post("/messages", s.SaveMessage)
			chat.Get("/messages/{sessionId}", s.ListMessages)
			chat.Post("/send", s.Send)
			chat.Get("/onboarding", s.Onboarding)
			chat.Get("/suggestions", s.Suggestions)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.With(limiter.Middleware).Post("/login", s.AdminLogin)
			admin.Post("/logout", s.AdminLogout)

			admin.Group(func(panel chi.Router) {
				panel.Use(s.WithAdminAuth)
				panel.Get("/me", s.AdminMe)
				panel.Get("/access-codes", s.ListAccessCodes)
				panel.Post("/access-codes", s.CreateAccessCode)
				panel.Delete("/access-codes/{code}", s.RevokeAccessCode)
				panel.Get("/users", s.ListUsers)
				panel.Delete("/users/{userId}", s.DeleteUser)
				panel.Get("/stats", s.Stats)
				panel.Get("/metrics/history", s.MetricsHistory)
			})
		})
	})

	r.With(s.WithAdminAuth).Get("/ws/admin/metrics", s.MetricsSocket)
	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	WriteJSON(w, code, map[string]string{"status": status})
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
