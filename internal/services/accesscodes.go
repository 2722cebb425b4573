package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"strings"
	"time"

	"mamiland-backend-go/internal/models"

	"github.com/jmoiron/sqlx"
)

const (
	accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	AccessCodeLength   = 6
	codeInsertAttempts = 5
)

// NewAccessCode draws a random code from the uppercase alphanumeric alphabet.
func NewAccessCode() (string, error) {
	max := big.NewInt(int64(len(accessCodeAlphabet)))
	buf := make([]byte, AccessCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = accessCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// NormalizeAccessCode trims and uppercases user input.
func NormalizeAccessCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// WellFormedAccessCode reports whether code could have been issued.
func WellFormedAccessCode(code string) bool {
	if len(code) != AccessCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(accessCodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// GenerateAccessCode stores a fresh code valid for ttl. A collision with an
// existing code is retried with a new draw.
func GenerateAccessCode(ctx context.Context, db *sqlx.DB, ttl time.Duration) (models.AccessCode, error) {
	now := time.Now().UTC()
	for attempt := 0; attempt < codeInsertAttempts; attempt++ {
		code, err := NewAccessCode()
		if err != nil {
			return models.AccessCode{}, err
		}
		item := models.AccessCode{}
		err = db.GetContext(ctx, &item, `
INSERT INTO access_codes (code, created_at, expires_at, is_used)
VALUES ($1, $2, $3, FALSE)
ON CONFLICT (code) DO NOTHING
RETURNING code, created_at, expires_at, is_used, used_at, used_by
`, code, now, now.Add(ttl))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return models.AccessCode{}, WrapError(err, "insert access code")
		}
		return item, nil
	}
	return models.AccessCode{}, errors.New("access code space exhausted after retries")
}

// ValidateAccessCode consumes code if it is unused and unexpired. The check
// and the consumption are a single statement, so two concurrent redemptions
// of the same code cannot both succeed.
func ValidateAccessCode(ctx context.Context, db *sqlx.DB, raw string) (models.AccessCode, error) {
	code := NormalizeAccessCode(raw)
	if code == "" {
		return models.AccessCode{}, ErrBadRequest(MsgCodeRequired)
	}
	if !WellFormedAccessCode(code) {
		return models.AccessCode{}, ErrInvalidAccessCode
	}
	item := models.AccessCode{}
	err := db.GetContext(ctx, &item, `
UPDATE access_codes
SET is_used = TRUE, used_at = $2
WHERE code = $1 AND is_used = FALSE AND expires_at > $2
RETURNING code, created_at, expires_at, is_used, used_at, used_by
`, code, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return models.AccessCode{}, ErrInvalidAccessCode
	}
	if err != nil {
		return models.AccessCode{}, WrapError(err, "consume access code")
	}
	return item, nil
}

// BindAccessCode records which account a redeemed code produced.
func BindAccessCode(ctx context.Context, db *sqlx.DB, code, userID string) error {
	_, err := db.ExecContext(ctx, `UPDATE access_codes SET used_by = $2 WHERE code = $1 AND is_used = TRUE AND used_by IS NULL`,
		NormalizeAccessCode(code), userID)
	return err
}

func RevokeAccessCode(ctx context.Context, db *sqlx.DB, raw string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM access_codes WHERE code = $1`, NormalizeAccessCode(raw))
	if err != nil {
		return WrapError(err, "delete access code")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound(MsgCodeNotFound)
	}
	return nil
}

// ListAccessCodes returns every code, newest first.
func ListAccessCodes(ctx context.Context, db *sqlx.DB) ([]models.AccessCode, error) {
	items := []models.AccessCode{}
	err := db.SelectContext(ctx, &items, `
SELECT code, created_at, expires_at, is_used, used_at, used_by
FROM access_codes
ORDER BY created_at DESC, code
`)
	return items, err
}

// PartitionAccessCodes splits codes into those redeemable at now and the rest,
// keeping the input order.
func PartitionAccessCodes(codes []models.AccessCode, now time.Time) (active, history []models.AccessCode) {
	active = []models.AccessCode{}
	history = []models.AccessCode{}
	for _, code := range codes {
		if code.Valid(now) {
			active = append(active, code)
		} else {
			history = append(history, code)
		}
	}
	return active, history
}
