package services

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"mamiland-backend-go/internal/models"
	"mamiland-backend-go/internal/onboarding"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

type Registration struct {
	Username string
	Email    string
	Password string
}

// Validate checks the registration fields and normalizes them in place.
func (r *Registration) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return ErrBadRequest(MsgFieldsRequired)
	}
	if utf8.RuneCountInString(r.Username) < MinUsernameLength {
		return ErrBadRequest(MsgUsernameTooShort)
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		return ErrBadRequest(MsgPasswordTooShort)
	}
	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return ErrBadRequest(MsgEmailInvalid)
	}
	return nil
}

// RegisterUser creates the account together with its empty profile.
func RegisterUser(ctx context.Context, db *sqlx.DB, tokens TokenService, reg Registration) (models.User, error) {
	if err := reg.Validate(); err != nil {
		return models.User{}, err
	}

	taken := struct {
		Username bool `db:"username_taken"`
		Email    bool `db:"email_taken"`
	}{}
	if err := db.GetContext(ctx, &taken, `
SELECT
  EXISTS(SELECT 1 FROM users WHERE username = $1) AS username_taken,
  EXISTS(SELECT 1 FROM users WHERE lower(email) = $2) AS email_taken
`, reg.Username, reg.Email); err != nil {
		return models.User{}, WrapError(err, "check user uniqueness")
	}
	if taken.Username {
		return models.User{}, ErrUsernameTaken
	}
	if taken.Email {
		return models.User{}, ErrEmailTaken
	}

	hash, err := tokens.HashPassword(reg.Password)
	if err != nil {
		return models.User{}, WrapError(err, "hash password")
	}
	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return models.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$5)
`, user.ID, user.Username, user.Email, user.PasswordHash, now); err != nil {
		// Lost a race with a concurrent registration.
		if constraint, ok := uniqueConstraint(err); ok {
			if strings.Contains(constraint, "email") {
				return models.User{}, ErrEmailTaken
			}
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, WrapError(err, "insert user")
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO user_profiles (user_id, name, is_complete, updated_at)
VALUES ($1, '', FALSE, $2)
`, user.ID, now); err != nil {
		return models.User{}, WrapError(err, "insert profile")
	}
	if err := tx.Commit(); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// AuthenticateUser accepts either the username or the email as login.
func AuthenticateUser(ctx context.Context, db *sqlx.DB, tokens TokenService, login, password string) (models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return models.User{}, ErrBadRequest(MsgLoginRequired)
	}
	user := models.User{}
	err := db.GetContext(ctx, &user, `
SELECT id, username, email, password_hash, created_at, updated_at
FROM users
WHERE username = $1 OR lower(email) = lower($1)
ORDER BY (username = $1) DESC
LIMIT 1
`, login)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, WrapError(err, "load user")
	}
	if !tokens.VerifyPassword(password, user.PasswordHash) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func GetUser(ctx context.Context, db *sqlx.DB, userID string) (models.User, error) {
	user := models.User{}
	err := db.GetContext(ctx, &user, `
SELECT id, username, email, password_hash, created_at, updated_at
FROM users WHERE id = $1
`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound(MsgUserNotFound)
	}
	return user, err
}

// GetProfile returns the user's profile, or an empty one if the row is
// missing.
func GetProfile(ctx context.Context, db *sqlx.DB, userID string) (models.UserProfile, error) {
	profile := models.UserProfile{}
	err := db.GetContext(ctx, &profile, `
SELECT user_id, name, age, is_pregnant, pregnancy_week, medical_conditions, user_group, is_complete, updated_at
FROM user_profiles WHERE user_id = $1
`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{UserID: userID}, nil
	}
	return profile, err
}

// SaveProfile writes every profile field. Completion is derived from the
// answers, never taken from the caller.
func SaveProfile(ctx context.Context, db *sqlx.DB, profile models.UserProfile) (models.UserProfile, error) {
	profile.IsComplete = onboarding.Complete(profile)
	profile.UpdatedAt = time.Now().UTC()
	_, err := db.ExecContext(ctx, `
INSERT INTO user_profiles (user_id, name, age, is_pregnant, pregnancy_week, medical_conditions, user_group, is_complete, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (user_id) DO UPDATE SET
  name = EXCLUDED.name,
  age = EXCLUDED.age,
  is_pregnant = EXCLUDED.is_pregnant,
  pregnancy_week = EXCLUDED.pregnancy_week,
  medical_conditions = EXCLUDED.medical_conditions,
  user_group = EXCLUDED.user_group,
  is_complete = EXCLUDED.is_complete,
  updated_at = EXCLUDED.updated_at
`, profile.UserID, profile.Name, profile.Age, profile.IsPregnant, profile.PregnancyWeek,
		profile.MedicalConditions, string(profile.UserGroup), profile.IsComplete, profile.UpdatedAt)
	if err != nil {
		return models.UserProfile{}, WrapError(err, "save profile")
	}
	return profile, nil
}

// ProfilePatch carries the fields a client may set directly. Nil fields are
// left unchanged.
type ProfilePatch struct {
	Name              *string
	Age               *int
	IsPregnant        *bool
	PregnancyWeek     *int
	MedicalConditions *string
	UserGroup         *string
}

// Apply validates the patch against the onboarding ranges and merges it.
func (p ProfilePatch) Apply(profile models.UserProfile) (models.UserProfile, error) {
	if p.Name != nil {
		profile.Name = strings.TrimSpace(*p.Name)
	}
	if p.Age != nil {
		if *p.Age < onboarding.MinAge || *p.Age > onboarding.MaxAge {
			return profile, ErrBadRequest(MsgInvalidAge)
		}
		age := *p.Age
		profile.Age = &age
	}
	if p.IsPregnant != nil {
		pregnant := *p.IsPregnant
		profile.IsPregnant = &pregnant
	}
	if p.PregnancyWeek != nil {
		if *p.PregnancyWeek < 0 || *p.PregnancyWeek > onboarding.MaxWeek {
			return profile, ErrBadRequest(MsgInvalidWeek)
		}
		week := *p.PregnancyWeek
		profile.PregnancyWeek = &week
	}
	if p.MedicalConditions != nil {
		conditions := strings.TrimSpace(*p.MedicalConditions)
		profile.MedicalConditions = &conditions
	}
	if p.UserGroup != nil {
		group := models.UserGroup(strings.TrimSpace(*p.UserGroup))
		if group != "" && !group.Valid() {
			return profile, ErrBadRequest(MsgInvalidGroup)
		}
		profile.UserGroup = group
	}
	return profile, nil
}

func UpdateProfile(ctx context.Context, db *sqlx.DB, userID string, patch ProfilePatch) (models.UserProfile, error) {
	current, err := GetProfile(ctx, db, userID)
	if err != nil {
		return models.UserProfile{}, err
	}
	next, err := patch.Apply(current)
	if err != nil {
		return models.UserProfile{}, err
	}
	return SaveProfile(ctx, db, next)
}

// AccountExpiresAt is the moment an account stops being usable: the given
// number of calendar months after creation.
func AccountExpiresAt(createdAt time.Time, months int) time.Time {
	return createdAt.AddDate(0, months, 0)
}

func AccountExpired(createdAt, now time.Time, months int) bool {
	return !now.Before(AccountExpiresAt(createdAt, months))
}

func ListUsers(ctx context.Context, db *sqlx.DB) ([]models.UserWithProfile, error) {
	items := []models.UserWithProfile{}
	err := db.SelectContext(ctx, &items, `
SELECT u.id, u.username, u.email, u.password_hash, u.created_at, u.updated_at,
       p.name, p.age, p.is_pregnant, p.pregnancy_week, p.user_group, p.is_complete,
       COALESCE(s.session_count, 0) AS session_count,
       s.last_active_at
FROM users u
LEFT JOIN user_profiles p ON p.user_id = u.id
LEFT JOIN (
  SELECT user_id, COUNT(*) AS session_count, MAX(updated_at) AS last_active_at
  FROM chat_sessions
  GROUP BY user_id
) s ON s.user_id = u.id
ORDER BY u.created_at DESC
`)
	return items, err
}

// DeleteUser removes the account; profile, sessions and messages cascade.
func DeleteUser(ctx context.Context, db *sqlx.DB, userID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return ErrNotFound(MsgUserNotFound)
	}
	res, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return WrapError(err, "delete user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound(MsgUserNotFound)
	}
	return nil
}
