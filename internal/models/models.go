package models

import "time"

type UserGroup string

const (
	GroupElderly             UserGroup = "elderly"
	GroupChild               UserGroup = "child"
	GroupPregnantMother      UserGroup = "pregnant_mother"
	GroupPostpartumMother    UserGroup = "postpartum_mother"
	GroupBreastfeedingMother UserGroup = "breastfeeding_mother"
)

// AllGroups lists every audience group in display order.
var AllGroups = []UserGroup{
	GroupElderly,
	GroupChild,
	GroupPregnantMother,
	GroupPostpartumMother,
	GroupBreastfeedingMother,
}

func (g UserGroup) Valid() bool {
	for _, known := range AllGroups {
		if g == known {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// UserProfile is the onboarding questionnaire state. A nil pointer means the
// question has not been answered yet; PregnancyWeek 0 means not applicable.
type UserProfile struct {
	UserID            string    `db:"user_id"`
	Name              string    `db:"name"`
	Age               *int      `db:"age"`
	IsPregnant        *bool     `db:"is_pregnant"`
	PregnancyWeek     *int      `db:"pregnancy_week"`
	MedicalConditions *string   `db:"medical_conditions"`
	UserGroup         UserGroup `db:"user_group"`
	IsComplete        bool      `db:"is_complete"`
	UpdatedAt         time.Time `db:"updated_at"`
}

type AccessCode struct {
	Code      string     `db:"code"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt time.Time  `db:"expires_at"`
	IsUsed    bool       `db:"is_used"`
	UsedAt    *time.Time `db:"used_at"`
	UsedBy    *string    `db:"used_by"`
}

// Valid reports whether the code can still be redeemed at now.
func (c AccessCode) Valid(now time.Time) bool {
	return !c.IsUsed && now.Before(c.ExpiresAt)
}

type ChatSession struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Title        string    `db:"title"`
	IsActive     bool      `db:"is_active"`
	MessageCount int       `db:"message_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type ChatMessage struct {
	ID        string    `db:"id"`
	Seq       int64     `db:"seq"`
	SessionID string    `db:"session_id"`
	UserID    string    `db:"user_id"`
	Content   string    `db:"content"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

type Admin struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

// UserWithProfile is the admin listing row.
type UserWithProfile struct {
	User
	Name          *string    `db:"name"`
	Age           *int       `db:"age"`
	IsPregnant    *bool      `db:"is_pregnant"`
	PregnancyWeek *int       `db:"pregnancy_week"`
	UserGroup     *string    `db:"user_group"`
	IsComplete    *bool      `db:"is_complete"`
	SessionCount  int        `db:"session_count"`
	LastActiveAt  *time.Time `db:"last_active_at"`
}
