package httpapi

import (
	"net/http"

	"mamiland-backend-go/internal/metrics"
	"mamiland-backend-go/internal/services"

	"github.com/rs/zerolog/log"
)

type ValidateCodeRequest struct {
	Code string `json:"code"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool    `json:"success"`
	User    UserDTO `json:"user"`
	Token   string  `json:"token"`
}

type ProfileRequest struct {
	Name              *string `json:"name"`
	Age               *int    `json:"age"`
	IsPregnant        *bool   `json:"isPregnant"`
	PregnancyWeek     *int    `json:"pregnancyWeek"`
	MedicalConditions *string `json:"medicalConditions"`
	UserGroup         *string `json:"userGroup"`
}

// ValidateCode redeems an access code and hands the browser a short-lived
// grant that unlocks registration.
func (s *Server) ValidateCode(w http.ResponseWriter, r *http.Request) {
	var req ValidateCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	client := clientIP(r)
	blocked, err := s.Attempts.Blocked(r.Context(), client)
	if err != nil {
		log.Warn().Err(err).Msg("attempt guard unavailable")
	}
	if blocked {
		metrics.AccessCodeValidations.WithLabelValues("blocked").Inc()
		WriteError(w, http.StatusTooManyRequests, services.MsgTooManyAttempts)
		return
	}

	code, err := services.ValidateAccessCode(r.Context(), s.DB, req.Code)
	if err != nil {
		metrics.AccessCodeValidations.WithLabelValues("rejected").Inc()
		if ferr := s.Attempts.Fail(r.Context(), client); ferr != nil {
			log.Warn().Err(ferr).Msg("record failed access code attempt")
		}
		writeServiceError(w, r, err)
		return
	}
	metrics.AccessCodeValidations.WithLabelValues("accepted").Inc()
	_ = s.Attempts.Reset(r.Context(), client)

	grant, expires, err := s.Tokens.CreateAccessGrant(code.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.setCookie(w, accessCookie, grant, expires)
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	grantCookie, err := r.Cookie(accessCookie)
	if err != nil || grantCookie.Value == "" {
		WriteError(w, http.StatusForbidden, services.MsgAccessGrantMissing)
		return
	}
	grant, err := s.Tokens.Verify(grantCookie.Value, services.TokenTypeGrant)
	if err != nil {
		s.clearCookie(w, accessCookie)
		WriteError(w, http.StatusForbidden, services.MsgAccessGrantMissing)
		return
	}

	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.RegisterUser(r.Context(), s.DB, s.Tokens, services.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := services.BindAccessCode(r.Context(), s.DB, grant.Code, user.ID); err != nil {
		log.Warn().Err(err).Str("user", user.ID).Msg("bind access code")
	}
	s.clearCookie(w, accessCookie)
	log.Info().Str("user", user.ID).Str("username", user.Username).Msg("user registered")
	s.startSession(w, r, user.ID)
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.AuthenticateUser(r.Context(), s.DB, s.Tokens, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if services.AccountExpired(user.CreatedAt, s.now(), s.Config.AccountLifetimeMonths) {
		writeServiceError(w, r, services.ErrAccountExpired)
		return
	}
	s.startSession(w, r, user.ID)
}

// startSession issues the session cookie and writes the auth response.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := services.GetUser(r.Context(), s.DB, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	profile, err := services.GetProfile(r.Context(), s.DB, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, expires, err := s.Tokens.CreateSessionToken(user.ID, user.Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.setCookie(w, userCookie, token, expires)
	WriteJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		User:    userDTO(user, profile, services.AccountExpiresAt(user.CreatedAt, s.Config.AccountLifetimeMonths)),
		Token:   token,
	})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w, userCookie)
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	userID := CurrentUserID(r)
	user, err := services.GetUser(r.Context(), s.DB, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	profile, err := services.GetProfile(r.Context(), s.DB, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]UserDTO{
		"user": userDTO(user, profile, services.AccountExpiresAt(user.CreatedAt, s.Config.AccountLifetimeMonths)),
	})
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := CurrentUserID(r)
	profile, err := services.UpdateProfile(r.Context(), s.DB, userID, services.ProfilePatch{
		Name:              req.Name,
		Age:               req.Age,
		IsPregnant:        req.IsPregnant,
		PregnancyWeek:     req.PregnancyWeek,
		MedicalConditions: req.MedicalConditions,
		UserGroup:         req.UserGroup,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	user, err := services.GetUser(r.Context(), s.DB, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    userDTO(user, profile, services.AccountExpiresAt(user.CreatedAt, s.Config.AccountLifetimeMonths)),
	})
}
