package services

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type DashboardStats struct {
	Users           int       `json:"users"`
	CompleteUsers   int       `json:"completeProfiles"`
	ActiveCodes     int       `json:"activeCodes"`
	UsedCodes       int       `json:"usedCodes"`
	ChatSessions    int       `json:"chatSessions"`
	Messages        int       `json:"messages"`
	Admins          int       `json:"admins"`
	NewUsersLastDay int       `json:"newUsersLastDay"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// CollectDashboardStats runs the admin dashboard counters concurrently.
func CollectDashboardStats(ctx context.Context, db *sqlx.DB) (DashboardStats, error) {
	now := time.Now().UTC()
	stats := DashboardStats{GeneratedAt: now}

	counters := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&stats.Users, `SELECT COUNT(*) FROM users`, nil},
		{&stats.CompleteUsers, `SELECT COUNT(*) FROM user_profiles WHERE is_complete = TRUE`, nil},
		{&stats.ActiveCodes, `SELECT COUNT(*) FROM access_codes WHERE is_used = FALSE AND expires_at > $1`, []interface{}{now}},
		{&stats.UsedCodes, `SELECT COUNT(*) FROM access_codes WHERE is_used = TRUE`, nil},
		{&stats.ChatSessions, `SELECT COUNT(*) FROM chat_sessions`, nil},
		{&stats.Messages, `SELECT COUNT(*) FROM chat_messages`, nil},
		{&stats.Admins, `SELECT COUNT(*) FROM admins WHERE is_active = TRUE`, nil},
		{&stats.NewUsersLastDay, `SELECT COUNT(*) FROM users WHERE created_at > $1`, []interface{}{now.Add(-24 * time.Hour)}},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, c := range counters {
		c := c
		g.Go(func() error {
			return db.GetContext(gctx, c.dest, c.query, c.args...)
		})
	}
	if err := g.Wait(); err != nil {
		return DashboardStats{}, WrapError(err, "collect stats")
	}
	return stats, nil
}
