package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mixelka/commentbot/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// LoadAccounts returns all stored bot accounts and the persisted active account id.
// Called once at process start.
func (db *DB) LoadAccounts(ctx context.Context) ([]*models.BotAccount, string, error) {
	var accounts []*models.BotAccount
	query := `SELECT * FROM bot_accounts ORDER BY created_at ASC`
	if err := db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, "", fmt.Errorf("failed to load accounts: %w", err)
	}

	var activeID sql.NullString
	err := db.GetContext(ctx, &activeID, `SELECT active_account_id FROM panel_state WHERE id = 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("failed to load panel state: %w", err)
	}

	return accounts, activeID.String, nil
}

// SaveAccounts replaces the stored account set and active account id in one
// transaction. The registry writes through on every mutation.
func (db *DB) SaveAccounts(ctx context.Context, accounts []*models.BotAccount, activeID string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bot_accounts`); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}

	insert := `
		INSERT INTO bot_accounts (id, name, token, openai_api_key, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	for _, account := range accounts {
		createdAt := account.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.ExecContext(ctx, insert,
			account.ID,
			account.Name,
			account.Token,
			account.OpenAIAPIKey,
			account.IsActive,
			createdAt,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to save account %s: %w", account.ID, err)
		}
	}

	state := `
		INSERT INTO panel_state (id, active_account_id) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET active_account_id = excluded.active_account_id
	`
	var active any
	if activeID != "" {
		active = activeID
	}
	if _, err := tx.ExecContext(ctx, state, active); err != nil {
		return fmt.Errorf("failed to save panel state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit accounts: %w", err)
	}
	return nil
}
