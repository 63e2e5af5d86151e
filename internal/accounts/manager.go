package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mixelka/commentbot/pkg/models"
)

// ErrDuplicateToken is returned when registering a token that already exists
var ErrDuplicateToken = errors.New("a bot with this token already exists")

// Connector is the polling engine as the registry sees it
type Connector interface {
	Connect(ctx context.Context, creds models.Credentials) error
	Disconnect()
}

// Store persists the account set
type Store interface {
	SaveAccounts(ctx context.Context, accounts []*models.BotAccount, activeID string) error
}

// ActivityRecorder records account lifecycle events
type ActivityRecorder interface {
	RecordActivity(action string)
}

// Manager owns the account collection and the active-account pointer. All
// mutations go through the manager mutex, which also serializes activations.
type Manager struct {
	mu       sync.Mutex
	accounts []*models.BotAccount
	activeID string

	engine   Connector
	store    Store
	activity ActivityRecorder
	logger   *slog.Logger
}

// NewManager creates a manager seeded with previously persisted accounts
func NewManager(accounts []*models.BotAccount, activeID string, engine Connector, store Store, activity ActivityRecorder, logger *slog.Logger) *Manager {
	return &Manager{
		accounts: accounts,
		activeID: activeID,
		engine:   engine,
		store:    store,
		activity: activity,
		logger:   logger.With("component", "accounts"),
	}
}

// AddAccount registers a new, inactive account. The token must be unique
// across the registry.
func (m *Manager) AddAccount(ctx context.Context, name, token, apiKey string) (*models.BotAccount, error) {
	if name == "" {
		return nil, fmt.Errorf("account name is required")
	}
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, account := range m.accounts {
		if account.Token == token {
			return nil, ErrDuplicateToken
		}
	}

	account := &models.BotAccount{
		ID:           uuid.NewString(),
		Name:         name,
		Token:        token,
		OpenAIAPIKey: apiKey,
	}
	m.accounts = append(m.accounts, account)
	m.persistLocked(ctx)

	m.logger.Info("bot account added", "account_id", account.ID, "name", name)
	m.activity.RecordActivity(fmt.Sprintf("Bot account %q added", name))

	copied := *account
	return &copied, nil
}

// RemoveAccount deletes an account. Removing the active account disconnects
// it first; removing an unknown id is a no-op.
func (m *Manager) RemoveAccount(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == m.activeID {
		m.engine.Disconnect()
		m.activeID = ""
	}

	kept := m.accounts[:0]
	removed := false
	for _, account := range m.accounts {
		if account.ID == id {
			removed = true
			continue
		}
		kept = append(kept, account)
	}
	m.accounts = kept

	if !removed {
		return
	}
	m.persistLocked(ctx)

	m.logger.Info("bot account removed", "account_id", id)
	m.activity.RecordActivity("Bot account removed")
}

// ActivateAccount makes the given account the single active one. Any current
// connection is dropped first. Returns false when the id is unknown or the
// credentials are rejected; a failed activation leaves no account active.
func (m *Manager) ActivateAccount(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var target *models.BotAccount
	for _, account := range m.accounts {
		if account.ID == id {
			target = account
			break
		}
	}
	if target == nil {
		m.logger.Warn("cannot activate unknown account", "account_id", id)
		return false
	}

	if m.activeID != "" {
		m.engine.Disconnect()
	}

	err := m.engine.Connect(ctx, models.Credentials{
		Token:        target.Token,
		OpenAIAPIKey: target.OpenAIAPIKey,
	})
	if err != nil {
		m.logger.Error("failed to activate account", "account_id", id, "error", err)
		if m.activeID != "" {
			m.clearActiveLocked(ctx)
		}
		return false
	}

	for _, account := range m.accounts {
		account.IsActive = account.ID == id
	}
	m.activeID = id
	m.persistLocked(ctx)

	m.logger.Info("bot account activated", "account_id", id, "name", target.Name)
	m.activity.RecordActivity(fmt.Sprintf("Bot %q is now active", target.Name))
	return true
}

// Deactivate disconnects the active account, if any, and clears its flag
func (m *Manager) Deactivate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID == "" {
		return
	}
	m.engine.Disconnect()
	m.clearActiveLocked(ctx)
	m.logger.Info("bot account deactivated")
}

// Accounts returns a snapshot copy of all registered accounts
func (m *Manager) Accounts() []models.BotAccount {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.BotAccount, 0, len(m.accounts))
	for _, account := range m.accounts {
		out = append(out, *account)
	}
	return out
}

// ActiveAccount returns a copy of the active account, or nil
func (m *Manager) ActiveAccount() *models.BotAccount {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, account := range m.accounts {
		if account.ID == m.activeID {
			copied := *account
			return &copied
		}
	}
	return nil
}

func (m *Manager) clearActiveLocked(ctx context.Context) {
	for _, account := range m.accounts {
		account.IsActive = false
	}
	m.activeID = ""
	m.persistLocked(ctx)
}

// persistLocked writes the account set through to the store. Persistence
// failures are logged; the in-memory registry stays authoritative for the
// process lifetime.
func (m *Manager) persistLocked(ctx context.Context) {
	if err := m.store.SaveAccounts(ctx, m.accounts, m.activeID); err != nil {
		m.logger.Error("failed to persist accounts", "error", err)
	}
}
