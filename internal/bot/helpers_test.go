package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mixelka/commentbot/pkg/models"
)

type sentMessage struct {
	chatID int64
	text   string
}

// fakeTransport serves queued update batches and records sends
type fakeTransport struct {
	mu      sync.Mutex
	batches [][]models.Update
	sent    []sentMessage
	fetches []int // afterCursor argument of each fetch
	gate    chan struct{}

	fetchErr error
	sendErr  error
}

func (f *fakeTransport) FetchUpdates(ctx context.Context, afterCursor int) ([]models.Update, error) {
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches = append(f.fetches, afterCursor)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeTransport) SendText(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeTransport) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeTransport) fetchCursors() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.fetches...)
}

// fakeCompleter returns a canned comment or error
type fakeCompleter struct {
	mu     sync.Mutex
	result string
	err    error
	calls  []string // source texts
}

func (f *fakeCompleter) GenerateComment(ctx context.Context, apiKey, sourceText string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sourceText)
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeStats counts recorder events in memory
type fakeStats struct {
	mu         sync.Mutex
	total      int
	commands   int
	aiReplies  int
	activities []string
}

func (f *fakeStats) IncrementTotalMessages() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total++
}

func (f *fakeStats) IncrementCommandsUsed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands++
}

func (f *fakeStats) IncrementAIResponses() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aiReplies++
}

func (f *fakeStats) RecordActivity(action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, action)
}

func (f *fakeStats) Snapshot() models.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.Stats{
		TotalMessages:        f.total,
		MessagesToday:        f.total,
		CommandsUsed:         f.commands,
		AIResponsesGenerated: f.aiReplies,
	}
}

func (f *fakeStats) counts() (total, commands, aiReplies int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total, f.commands, f.aiReplies
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestService(transport Transport, completer Completer, stats StatsRecorder) *Service {
	return NewService(Deps{
		Dial:         func(token string) (Transport, error) { return transport, nil },
		Completer:    completer,
		Stats:        stats,
		Logger:       testLogger(),
		PollInterval: 5 * time.Millisecond,
	})
}
