package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mixelka/commentbot/pkg/models"
)

type statsRow struct {
	TotalMessages  int       `db:"total_messages"`
	MessagesToday  int       `db:"messages_today"`
	CommandsUsed   int       `db:"commands_used"`
	AIResponses    int       `db:"ai_responses"`
	RecentActivity string    `db:"recent_activity"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// LoadStats returns the persisted stats snapshot. A missing row yields zeroed
// stats, not an error.
func (db *DB) LoadStats(ctx context.Context) (*models.Stats, error) {
	var row statsRow
	query := `SELECT total_messages, messages_today, commands_used, ai_responses, recent_activity, updated_at
		FROM bot_stats WHERE id = 1`
	err := db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Stats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	stats := &models.Stats{
		TotalMessages:        row.TotalMessages,
		MessagesToday:        row.MessagesToday,
		CommandsUsed:         row.CommandsUsed,
		AIResponsesGenerated: row.AIResponses,
	}
	if err := json.Unmarshal([]byte(row.RecentActivity), &stats.RecentActivity); err != nil {
		return nil, fmt.Errorf("failed to decode recent activity: %w", err)
	}
	return stats, nil
}

// SaveStats upserts the stats snapshot. Called on every stats mutation.
func (db *DB) SaveStats(ctx context.Context, stats *models.Stats) error {
	activity := stats.RecentActivity
	if activity == nil {
		activity = []models.Activity{}
	}
	encoded, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to encode recent activity: %w", err)
	}

	query := `
		INSERT INTO bot_stats (id, total_messages, messages_today, commands_used, ai_responses, recent_activity, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_messages = excluded.total_messages,
			messages_today = excluded.messages_today,
			commands_used = excluded.commands_used,
			ai_responses = excluded.ai_responses,
			recent_activity = excluded.recent_activity,
			updated_at = excluded.updated_at
	`
	_, err = db.ExecContext(ctx, query,
		stats.TotalMessages,
		stats.MessagesToday,
		stats.CommandsUsed,
		stats.AIResponsesGenerated,
		string(encoded),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}
