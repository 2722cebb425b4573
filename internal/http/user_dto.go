package httpapi

import (
	"time"

	"mamiland-backend-go/internal/models"
	"mamiland-backend-go/internal/onboarding"
)

type ProfileDTO struct {
	Name              string  `json:"name"`
	Age               *int    `json:"age"`
	IsPregnant        *bool   `json:"isPregnant"`
	PregnancyWeek     *int    `json:"pregnancyWeek"`
	MedicalConditions *string `json:"medicalConditions"`
	UserGroup         string  `json:"userGroup"`
	UserGroupLabel    string  `json:"userGroupLabel,omitempty"`
	IsComplete        bool    `json:"isComplete"`
	Step              int     `json:"onboardingStep"`
}

type UserDTO struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	Profile   ProfileDTO `json:"profile"`
}

func profileDTO(p models.UserProfile) ProfileDTO {
	return ProfileDTO{
		Name:              p.Name,
		Age:               p.Age,
		IsPregnant:        p.IsPregnant,
		PregnancyWeek:     p.PregnancyWeek,
		MedicalConditions: p.MedicalConditions,
		UserGroup:         string(p.UserGroup),
		UserGroupLabel:    onboarding.GroupLabel(p.UserGroup),
		IsComplete:        p.IsComplete,
		Step:              int(onboarding.CurrentStep(p)),
	}
}

func userDTO(u models.User, p models.UserProfile, expiresAt time.Time) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		ExpiresAt: expiresAt,
		Profile:   profileDTO(p),
	}
}

type SessionDTO struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func sessionDTOs(items []models.ChatSession) []SessionDTO {
	out := make([]SessionDTO, 0, len(items))
	for _, s := range items {
		out = append(out, SessionDTO{
			ID:           s.ID,
			Title:        s.Title,
			MessageCount: s.MessageCount,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
		})
	}
	return out
}

type MessageDTO struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func messageDTO(m models.ChatMessage) MessageDTO {
	return MessageDTO{
		ID:        m.ID,
		SessionID: m.SessionID,
		Content:   m.Content,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
	}
}

type AccessCodeDTO struct {
	Code      string     `json:"code"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	IsUsed    bool       `json:"isUsed"`
	UsedAt    *time.Time `json:"usedAt"`
	UsedBy    *string    `json:"usedBy"`
	Expired   bool       `json:"expired"`
}

func accessCodeDTOs(items []models.AccessCode, now time.Time) []AccessCodeDTO {
	out := make([]AccessCodeDTO, 0, len(items))
	for _, c := range items {
		out = append(out, AccessCodeDTO{
			Code:      c.Code,
			CreatedAt: c.CreatedAt,
			ExpiresAt: c.ExpiresAt,
			IsUsed:    c.IsUsed,
			UsedAt:    c.UsedAt,
			UsedBy:    c.UsedBy,
			Expired:   !now.Before(c.ExpiresAt),
		})
	}
	return out
}

type AdminUserDTO struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	Expired       bool       `json:"expired"`
	Name          *string    `json:"name"`
	Age           *int       `json:"age"`
	IsPregnant    *bool      `json:"isPregnant"`
	PregnancyWeek *int       `json:"pregnancyWeek"`
	UserGroup     *string    `json:"userGroup"`
	IsComplete    bool       `json:"isComplete"`
	SessionCount  int        `json:"sessionCount"`
	LastActiveAt  *time.Time `json:"lastActiveAt"`
}
