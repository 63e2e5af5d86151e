package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mixelka/commentbot/pkg/models"
)

// Store persists stats snapshots
type Store interface {
	SaveStats(ctx context.Context, stats *models.Stats) error
}

// Recorder owns the usage counters and the bounded recent-activity log.
// Every mutation is written through to the store.
type Recorder struct {
	mu     sync.Mutex
	stats  models.Stats
	store  Store
	logger *slog.Logger
}

// NewRecorder creates a recorder seeded with previously persisted stats
func NewRecorder(initial *models.Stats, store Store, logger *slog.Logger) *Recorder {
	r := &Recorder{
		store:  store,
		logger: logger.With("component", "stats"),
	}
	if initial != nil {
		r.stats = *initial
		r.stats.RecentActivity = append([]models.Activity(nil), initial.RecentActivity...)
	}
	return r
}

// IncrementTotalMessages counts one inbound message, for the cumulative and
// the daily counter both
func (r *Recorder) IncrementTotalMessages() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.TotalMessages++
	r.stats.MessagesToday++
	r.persistLocked()
}

// IncrementCommandsUsed counts one dispatched command
func (r *Recorder) IncrementCommandsUsed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.CommandsUsed++
	r.persistLocked()
}

// IncrementAIResponses counts one successfully generated AI comment
func (r *Recorder) IncrementAIResponses() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.AIResponsesGenerated++
	r.persistLocked()
}

// RecordActivity prepends a timestamped entry, keeping at most
// models.MaxRecentActivity entries, newest first
func (r *Recorder) RecordActivity(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := models.Activity{Timestamp: time.Now(), Action: action}
	activity := append([]models.Activity{entry}, r.stats.RecentActivity...)
	if len(activity) > models.MaxRecentActivity {
		activity = activity[:models.MaxRecentActivity]
	}
	r.stats.RecentActivity = activity
	r.persistLocked()
}

// ResetDaily zeroes the daily counter only. Cumulative totals are untouched.
// Invoked by an external scheduler through the panel API.
func (r *Recorder) ResetDaily() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.MessagesToday = 0
	r.persistLocked()
}

// Snapshot returns a copy of the current stats
func (r *Recorder) Snapshot() models.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.stats
	snapshot.RecentActivity = append([]models.Activity(nil), r.stats.RecentActivity...)
	return snapshot
}

// persistLocked writes the current stats through to the store. Persistence
// failures are logged, never propagated, so a broken disk cannot stall the
// polling loop.
func (r *Recorder) persistLocked() {
	snapshot := r.stats
	snapshot.RecentActivity = append([]models.Activity(nil), r.stats.RecentActivity...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.store.SaveStats(ctx, &snapshot); err != nil {
		r.logger.Error("failed to persist stats", "error", err)
	}
}
