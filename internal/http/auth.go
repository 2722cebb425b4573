package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"mamiland-backend-go/internal/services"
)

type contextKey string

const (
	ctxUserID    contextKey = "userID"
	ctxUsername  contextKey = "username"
	ctxAdminID   contextKey = "adminID"
	ctxAdminName contextKey = "adminName"
)

const (
	userCookie   = "token"
	adminCookie  = "admin_token"
	accessCookie = "access_grant"
)

func (s *Server) setCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   s.Config.Production(),
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Config.Production(),
		SameSite: http.SameSiteStrictMode,
	})
}

// bearerOrCookie returns the token from the named cookie, falling back to an
// Authorization: Bearer header.
func bearerOrCookie(r *http.Request, cookie string) string {
	if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// WithUserAuth requires a valid session token for a live account. Expired
// accounts lose their cookie.
func (s *Server) WithUserAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerOrCookie(r, userCookie)
		if tokenStr == "" {
			WriteError(w, http.StatusUnauthorized, services.MsgTokenMissing)
			return
		}
		claims, err := s.Tokens.Verify(tokenStr, services.TokenTypeSession)
		if err != nil {
			s.clearCookie(w, userCookie)
			writeServiceError(w, r, err)
			return
		}
		user, err := services.GetUser(r.Context(), s.DB, claims.Subject)
		var serr services.ServiceError
		if errors.As(err, &serr) {
			// deleted account
			s.clearCookie(w, userCookie)
			WriteError(w, http.StatusUnauthorized, services.MsgUserNotFound)
			return
		}
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if services.AccountExpired(user.CreatedAt, s.now(), s.Config.AccountLifetimeMonths) {
			s.clearCookie(w, userCookie)
			writeServiceError(w, r, services.ErrAccountExpired)
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, user.ID)
		ctx = context.WithValue(ctx, ctxUsername, user.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) WithAdminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerOrCookie(r, adminCookie)
		if tokenStr == "" {
			WriteError(w, http.StatusUnauthorized, services.MsgUnauthorized)
			return
		}
		claims, err := s.Tokens.Verify(tokenStr, services.TokenTypeAdmin)
		if err != nil || !claims.IsAdmin {
			WriteError(w, http.StatusUnauthorized, services.MsgUnauthorized)
			return
		}
		admin, err := services.GetAdmin(r.Context(), s.DB, claims.Subject)
		var serr services.ServiceError
		if errors.As(err, &serr) {
			// deactivated or removed
			s.clearCookie(w, adminCookie)
			WriteError(w, http.StatusUnauthorized, services.MsgUnauthorized)
			return
		}
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxAdminID, admin.ID)
		ctx = context.WithValue(ctx, ctxAdminName, admin.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func CurrentUserID(r *http.Request) string {
	if value, ok := r.Context().Value(ctxUserID).(string); ok {
		return value
	}
	return ""
}

func CurrentAdminID(r *http.Request) string {
	if value, ok := r.Context().Value(ctxAdminID).(string); ok {
		return value
	}
	return ""
}
