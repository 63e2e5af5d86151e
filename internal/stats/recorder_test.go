package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/commentbot/pkg/models"
)

type memoryStore struct {
	mu    sync.Mutex
	saves int
	last  models.Stats
}

func (m *memoryStore) SaveStats(ctx context.Context, stats *models.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.last = *stats
	return nil
}

func newTestRecorder(initial *models.Stats) (*Recorder, *memoryStore) {
	store := &memoryStore{}
	return NewRecorder(initial, store, slog.New(slog.DiscardHandler)), store
}

func TestCountersPersistOnEveryMutation(t *testing.T) {
	r, store := newTestRecorder(nil)

	r.IncrementTotalMessages()
	r.IncrementTotalMessages()
	r.IncrementCommandsUsed()
	r.IncrementAIResponses()

	snapshot := r.Snapshot()
	assert.Equal(t, 2, snapshot.TotalMessages)
	assert.Equal(t, 2, snapshot.MessagesToday)
	assert.Equal(t, 1, snapshot.CommandsUsed)
	assert.Equal(t, 1, snapshot.AIResponsesGenerated)
	assert.Equal(t, 4, store.saves)
}

func TestRecorderSeededFromPersistedStats(t *testing.T) {
	r, _ := newTestRecorder(&models.Stats{
		TotalMessages: 100,
		MessagesToday: 5,
		RecentActivity: []models.Activity{
			{Action: "Command executed: /help"},
		},
	})

	r.IncrementTotalMessages()

	snapshot := r.Snapshot()
	assert.Equal(t, 101, snapshot.TotalMessages)
	assert.Equal(t, 6, snapshot.MessagesToday)
	require.Len(t, snapshot.RecentActivity, 1)
}

func TestRecentActivityBoundedNewestFirst(t *testing.T) {
	r, _ := newTestRecorder(nil)

	for i := 0; i < 50; i++ {
		r.RecordActivity(fmt.Sprintf("action %d", i))
	}

	snapshot := r.Snapshot()
	require.Len(t, snapshot.RecentActivity, models.MaxRecentActivity)
	assert.Equal(t, "action 49", snapshot.RecentActivity[0].Action)
	assert.Equal(t, "action 30", snapshot.RecentActivity[models.MaxRecentActivity-1].Action)
	assert.False(t, snapshot.RecentActivity[0].Timestamp.IsZero())
}

func TestResetDailyLeavesTotalsUntouched(t *testing.T) {
	r, _ := newTestRecorder(&models.Stats{TotalMessages: 40, MessagesToday: 12, CommandsUsed: 7})

	r.ResetDaily()

	snapshot := r.Snapshot()
	assert.Zero(t, snapshot.MessagesToday)
	assert.Equal(t, 40, snapshot.TotalMessages)
	assert.Equal(t, 7, snapshot.CommandsUsed)
}

func TestSnapshotIsACopy(t *testing.T) {
	r, _ := newTestRecorder(nil)
	r.RecordActivity("first")

	snapshot := r.Snapshot()
	snapshot.TotalMessages = 999
	snapshot.RecentActivity[0].Action = "tampered"

	fresh := r.Snapshot()
	assert.Zero(t, fresh.TotalMessages)
	assert.Equal(t, "first", fresh.RecentActivity[0].Action)
}
