package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"mamiland-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	DefaultSessionTitle = "چت جدید"
	sessionTitleRunes   = 30
)

// SessionTitle is the excerpt of a first message used as a session title.
func SessionTitle(message string) string {
	text := strings.Join(strings.Fields(message), " ")
	if text == "" {
		return DefaultSessionTitle
	}
	if utf8.RuneCountInString(text) <= sessionTitleRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:sessionTitleRunes]) + "..."
}

func CreateChatSession(ctx context.Context, db *sqlx.DB, userID, title string) (models.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultSessionTitle
	}
	now := time.Now().UTC()
	session := models.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO chat_sessions (id, user_id, title, is_active, created_at, updated_at)
VALUES ($1,$2,$3,TRUE,$4,$4)
`, session.ID, session.UserID, session.Title, now)
	if err != nil {
		return models.ChatSession{}, WrapError(err, "insert chat session")
	}
	return session, nil
}

// ListChatSessions returns the user's active sessions, most recently used
// first, with their message counts.
func ListChatSessions(ctx context.Context, db *sqlx.DB, userID string) ([]models.ChatSession, error) {
	items := []models.ChatSession{}
	err := db.SelectContext(ctx, &items, `
SELECT s.id, s.user_id, s.title, s.is_active, s.created_at, s.updated_at,
       (SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id) AS message_count
FROM chat_sessions s
WHERE s.user_id = $1 AND s.is_active = TRUE
ORDER BY s.updated_at DESC
`, userID)
	return items, err
}

// GetChatSession loads an active session owned by userID. Sessions of other
// users are reported as missing.
func GetChatSession(ctx context.Context, db *sqlx.DB, userID, sessionID string) (models.ChatSession, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return models.ChatSession{}, ErrNotFound(MsgSessionNotFound)
	}
	session := models.ChatSession{}
	err := db.GetContext(ctx, &session, `
SELECT s.id, s.user_id, s.title, s.is_active, s.created_at, s.updated_at,
       (SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id) AS message_count
FROM chat_sessions s
WHERE s.id = $1 AND s.user_id = $2 AND s.is_active = TRUE
`, sessionID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatSession{}, ErrNotFound(MsgSessionNotFound)
	}
	return session, err
}

// DeleteChatSession hides the session; its messages are kept.
func DeleteChatSession(ctx context.Context, db *sqlx.DB, userID, sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return ErrNotFound(MsgSessionNotFound)
	}
	res, err := db.ExecContext(ctx, `
UPDATE chat_sessions SET is_active = FALSE, updated_at = $3
WHERE id = $1 AND user_id = $2 AND is_active = TRUE
`, sessionID, userID, time.Now().UTC())
	if err != nil {
		return WrapError(err, "delete chat session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound(MsgSessionNotFound)
	}
	return nil
}

// SaveChatMessage appends a message and bumps the session's activity time.
// The first user message of an untitled session becomes its title.
func SaveChatMessage(ctx context.Context, db *sqlx.DB, sessionID, userID string, role models.Role, content string) (models.ChatMessage, error) {
	if role != models.RoleUser && role != models.RoleAssistant {
		return models.ChatMessage{}, ErrBadRequest(MsgInvalidRole)
	}
	if strings.TrimSpace(content) == "" {
		return models.ChatMessage{}, ErrBadRequest(MsgIncompleteMessage)
	}
	if _, err := GetChatSession(ctx, db, userID, sessionID); err != nil {
		return models.ChatMessage{}, err
	}

	now := time.Now().UTC()
	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Content:   content,
		Role:      role,
		CreatedAt: now,
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ChatMessage{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.GetContext(ctx, &msg.Seq, `
INSERT INTO chat_messages (id, session_id, user_id, content, role, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING seq
`, msg.ID, msg.SessionID, msg.UserID, msg.Content, string(msg.Role), now); err != nil {
		return models.ChatMessage{}, WrapError(err, "insert chat message")
	}

	if role == models.RoleUser {
		_, err = tx.ExecContext(ctx, `
UPDATE chat_sessions SET updated_at = $2,
  title = CASE
    WHEN title = $3 AND NOT EXISTS (
      SELECT 1 FROM chat_messages WHERE session_id = $1 AND role = 'user' AND id <> $5
    ) THEN $4
    ELSE title
  END
WHERE id = $1
`, sessionID, now, DefaultSessionTitle, SessionTitle(content), msg.ID)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = $2 WHERE id = $1`, sessionID, now)
	}
	if err != nil {
		return models.ChatMessage{}, WrapError(err, "touch chat session")
	}
	if err := tx.Commit(); err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// ListChatMessages returns a session's messages oldest first, after checking
// ownership.
func ListChatMessages(ctx context.Context, db *sqlx.DB, userID, sessionID string) ([]models.ChatMessage, error) {
	if _, err := GetChatSession(ctx, db, userID, sessionID); err != nil {
		return nil, err
	}
	items := []models.ChatMessage{}
	err := db.SelectContext(ctx, &items, `
SELECT id, seq, session_id, user_id, content, role, created_at
FROM chat_messages
WHERE session_id = $1
ORDER BY created_at ASC, seq ASC
`, sessionID)
	return items, err
}
