package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"mamiland-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AuthenticateAdmin checks the credentials of an active admin.
func AuthenticateAdmin(ctx context.Context, db *sqlx.DB, tokens TokenService, username, password string) (models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.Admin{}, ErrBadRequest(MsgLoginRequired)
	}
	admin := models.Admin{}
	err := db.GetContext(ctx, &admin, `
SELECT id, username, password_hash, is_active, created_at
FROM admins
WHERE username = $1 AND is_active = TRUE
`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Admin{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Admin{}, WrapError(err, "load admin")
	}
	if !tokens.VerifyPassword(password, admin.PasswordHash) {
		return models.Admin{}, ErrInvalidCredentials
	}
	return admin, nil
}

func GetAdmin(ctx context.Context, db *sqlx.DB, adminID string) (models.Admin, error) {
	admin := models.Admin{}
	err := db.GetContext(ctx, &admin, `
SELECT id, username, password_hash, is_active, created_at
FROM admins
WHERE id = $1 AND is_active = TRUE
`, adminID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Admin{}, ErrUnauthorized(MsgUnauthorized)
	}
	return admin, err
}

// EnsureAdmin creates the bootstrap admin if no admin with that username
// exists. An existing account keeps its password.
func EnsureAdmin(ctx context.Context, db *sqlx.DB, tokens TokenService, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	hash, err := tokens.HashPassword(password)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `
INSERT INTO admins (id, username, password_hash, is_active, created_at)
VALUES ($1,$2,$3,TRUE,$4)
ON CONFLICT (username) DO NOTHING
`, uuid.NewString(), username, hash, time.Now().UTC())
	if err != nil {
		return false, WrapError(err, "ensure admin")
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
