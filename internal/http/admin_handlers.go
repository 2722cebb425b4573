package httpapi

import (
	"net/http"

	"mamiland-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AdminDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (s *Server) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	admin, err := services.AuthenticateAdmin(r.Context(), s.DB, s.Tokens, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, expires, err := s.Tokens.CreateAdminToken(admin.ID, admin.Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.setCookie(w, adminCookie, token, expires)
	log.Info().Str("admin", admin.Username).Msg("admin login")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"admin":   AdminDTO{ID: admin.ID, Username: admin.Username},
	})
}

func (s *Server) AdminMe(w http.ResponseWriter, r *http.Request) {
	admin, err := services.GetAdmin(r.Context(), s.DB, CurrentAdminID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]AdminDTO{"admin": {ID: admin.ID, Username: admin.Username}})
}

func (s *Server) AdminLogout(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w, adminCookie)
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) ListAccessCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := services.ListAccessCodes(r.Context(), s.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	now := s.now()
	active, history := services.PartitionAccessCodes(codes, now)
	WriteJSON(w, http.StatusOK, map[string][]AccessCodeDTO{
		"codes":   accessCodeDTOs(codes, now),
		"active":  accessCodeDTOs(active, now),
		"history": accessCodeDTOs(history, now),
	})
}

func (s *Server) CreateAccessCode(w http.ResponseWriter, r *http.Request) {
	code, err := services.GenerateAccessCode(r.Context(), s.DB, s.Config.AccessCodeTTL)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.Info().Str("admin", CurrentAdminID(r)).Time("expires", code.ExpiresAt).Msg("access code generated")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"code":      code.Code,
		"expiresAt": code.ExpiresAt,
	})
}

func (s *Server) RevokeAccessCode(w http.ResponseWriter, r *http.Request) {
	if err := services.RevokeAccessCode(r.Context(), s.DB, chi.URLParam(r, "code")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := services.ListUsers(r.Context(), s.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	now := s.now()
	months := s.Config.AccountLifetimeMonths
	users := make([]AdminUserDTO, 0, len(rows))
	for _, row := range rows {
		users = append(users, AdminUserDTO{
			ID:            row.ID,
			Username:      row.Username,
			Email:         row.Email,
			CreatedAt:     row.CreatedAt,
			ExpiresAt:     services.AccountExpiresAt(row.CreatedAt, months),
			Expired:       services.AccountExpired(row.CreatedAt, now, months),
			Name:          row.Name,
			Age:           row.Age,
			IsPregnant:    row.IsPregnant,
			PregnancyWeek: row.PregnancyWeek,
			UserGroup:     row.UserGroup,
			IsComplete:    row.IsComplete != nil && *row.IsComplete,
			SessionCount:  row.SessionCount,
			LastActiveAt:  row.LastActiveAt,
		})
	}
	WriteJSON(w, http.StatusOK, map[string][]AdminUserDTO{"users": users})
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if err := services.DeleteUser(r.Context(), s.DB, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.Info().Str("admin", CurrentAdminID(r)).Str("user", userID).Msg("user deleted")
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := services.CollectDashboardStats(r.Context(), s.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
