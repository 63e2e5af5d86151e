package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mixelka/commentbot/pkg/models"
)

// ErrInvalidCredentials is returned by Connect when the messaging token is
// rejected by the identity probe
var ErrInvalidCredentials = errors.New("invalid bot credentials")

// Transport fetches inbound updates and sends replies for one bot token
type Transport interface {
	FetchUpdates(ctx context.Context, afterCursor int) ([]models.Update, error)
	SendText(ctx context.Context, chatID int64, text string) error
}

// DialFunc validates a token and returns a transport bound to it
type DialFunc func(token string) (Transport, error)

// Completer generates an AI comment for a source text
type Completer interface {
	GenerateComment(ctx context.Context, apiKey, sourceText string) (string, error)
}

// StatsRecorder receives dispatcher and engine events
type StatsRecorder interface {
	IncrementTotalMessages()
	IncrementCommandsUsed()
	IncrementAIResponses()
	RecordActivity(action string)
	Snapshot() models.Stats
}

// Deps dependencies for creating the polling service
type Deps struct {
	Dial         DialFunc
	Completer    Completer
	Stats        StatsRecorder
	Logger       *slog.Logger
	PollInterval time.Duration
}

// Service runs the fetch-and-dispatch cycle for the active bot account. At
// most one connection exists at a time; ticks for one connection run on a
// single goroutine, so a slow tick delays the next instead of overlapping it.
type Service struct {
	dial      DialFunc
	completer Completer
	stats     StatsRecorder
	logger    *slog.Logger
	interval  time.Duration

	mu         sync.Mutex
	generation int
	creds      *models.Credentials
	transport  Transport
	cursor     int
	polling    bool
	cancel     context.CancelFunc
}

// NewService creates a polling service in the disconnected state
func NewService(deps Deps) *Service {
	return &Service{
		dial:      deps.Dial,
		completer: deps.Completer,
		stats:     deps.Stats,
		logger:    deps.Logger.With("component", "bot_service"),
		interval:  deps.PollInterval,
	}
}

// Connect validates the messaging token, stores the credentials and starts
// polling from cursor 0. Any previous connection is dropped first.
func (s *Service) Connect(ctx context.Context, creds models.Credentials) error {
	transport, err := s.dial(creds.Token)
	if err != nil {
		s.logger.Warn("bot token rejected", "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	s.mu.Lock()
	s.disconnectLocked()
	s.generation++
	gen := s.generation

	runCtx, cancel := context.WithCancel(context.Background())
	s.creds = &creds
	s.transport = transport
	s.cursor = 0
	s.polling = true
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(runCtx, gen, transport, creds)

	s.logger.Info("bot connected, polling started", "interval", s.interval)
	return nil
}

// Disconnect stops polling, clears the credentials and resets the cursor.
// Safe to call at any time, including while already disconnected or mid-tick;
// a fetch that completes after disconnect discards its results.
func (s *Service) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
}

func (s *Service) disconnectLocked() {
	if !s.polling {
		return
	}
	s.cancel()
	s.cancel = nil
	s.creds = nil
	s.transport = nil
	s.cursor = 0
	s.polling = false
	s.logger.Info("bot disconnected")
}

// IsConnected reports whether the service is polling for updates
func (s *Service) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polling && s.creds != nil
}

// Cursor returns the highest update id processed on the current connection
func (s *Service) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Service) run(ctx context.Context, gen int, transport Transport, creds models.Credentials) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Runs synchronously on this goroutine: ticks never overlap and
			// ticks missed while one is in flight are dropped, not queued.
			s.tick(ctx, gen, transport, creds)
		}
	}
}

// tick fetches updates after the cursor and dispatches them in order. A
// transport failure skips the tick; the next tick retries from the same
// cursor.
func (s *Service) tick(ctx context.Context, gen int, transport Transport, creds models.Credentials) {
	cursor, ok := s.cursorFor(gen)
	if !ok {
		return
	}

	updates, err := transport.FetchUpdates(ctx, cursor)
	if err != nil {
		s.logger.Debug("failed to fetch updates, skipping tick", "error", err)
		return
	}

	for _, update := range updates {
		if ctx.Err() != nil {
			// Disconnected while the fetch was in flight
			return
		}
		s.processUpdate(ctx, transport, creds, update)
		if !s.advanceCursor(gen, update.ID) {
			return
		}
	}
}

func (s *Service) processUpdate(ctx context.Context, transport Transport, creds models.Credentials, update models.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}

	s.stats.IncrementTotalMessages()

	if strings.HasPrefix(strings.TrimSpace(msg.Text), "/") {
		s.dispatch(ctx, transport, creds, msg)
	}
}

func (s *Service) cursorFor(gen int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || !s.polling {
		return 0, false
	}
	return s.cursor, true
}

// advanceCursor moves the cursor past an update so it is never re-fetched,
// even when the update carried no command. Stale generations are ignored.
func (s *Service) advanceCursor(gen, updateID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || !s.polling {
		return false
	}
	if updateID > s.cursor {
		s.cursor = updateID
	}
	return true
}
