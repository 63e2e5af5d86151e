package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBotAPI serves just enough of the Telegram bot API for the client
type fakeBotAPI struct {
	mu          sync.Mutex
	validToken  string
	updatesJSON string
	offsets     []string
	sent        []string // text of sendMessage calls
}

func (f *fakeBotAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if !strings.Contains(r.URL.Path, "/bot"+f.validToken+"/") {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
			return
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Test","username":"test_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			f.mu.Lock()
			f.offsets = append(f.offsets, r.FormValue("offset"))
			f.mu.Unlock()
			fmt.Fprintf(w, `{"ok":true,"result":%s}`, f.updatesJSON)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			f.mu.Lock()
			f.sent = append(f.sent, r.FormValue("text"))
			f.mu.Unlock()
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":2,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		}
	})
}

func newTestDialer(t *testing.T, api *fakeBotAPI) *Dialer {
	t.Helper()
	ts := httptest.NewServer(api.handler())
	t.Cleanup(ts.Close)
	return NewDialer(ts.URL, 1, slog.New(slog.DiscardHandler))
}

func TestValidateToken(t *testing.T) {
	dialer := newTestDialer(t, &fakeBotAPI{validToken: "123:ABC"})

	name, err := dialer.ValidateToken("123:ABC")
	require.NoError(t, err)
	assert.Equal(t, "test_bot", name)

	_, err = dialer.ValidateToken("123:WRONG")
	assert.Error(t, err)
}

func TestDialRejectsBadToken(t *testing.T) {
	dialer := newTestDialer(t, &fakeBotAPI{validToken: "123:ABC"})

	_, err := dialer.Dial("bogus")
	assert.Error(t, err)
}

func TestFetchUpdates(t *testing.T) {
	api := &fakeBotAPI{
		validToken: "123:ABC",
		updatesJSON: `[
			{"update_id":5,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"/help"}},
			{"update_id":6,"message":{"message_id":2,"date":0,"chat":{"id":42,"type":"private"},"text":"/comment","reply_to_message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"nice work"}}},
			{"update_id":7}
		]`,
	}
	dialer := newTestDialer(t, api)

	client, err := dialer.Dial("123:ABC")
	require.NoError(t, err)

	updates, err := client.FetchUpdates(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	// Fetch asks strictly after the cursor
	assert.Equal(t, []string{"5"}, api.offsets)

	assert.Equal(t, 5, updates[0].ID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, int64(42), updates[0].Message.ChatID)
	assert.Equal(t, "/help", updates[0].Message.Text)
	assert.Nil(t, updates[0].Message.Reply)

	require.NotNil(t, updates[1].Message)
	require.NotNil(t, updates[1].Message.Reply)
	assert.Equal(t, "nice work", updates[1].Message.Reply.Text)

	assert.Equal(t, 7, updates[2].ID)
	assert.Nil(t, updates[2].Message)
}

func TestFetchUpdatesCancelledContext(t *testing.T) {
	dialer := newTestDialer(t, &fakeBotAPI{validToken: "123:ABC", updatesJSON: `[]`})
	client, err := dialer.Dial("123:ABC")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.FetchUpdates(ctx, 0)
	assert.Error(t, err)
}

func TestSendText(t *testing.T) {
	api := &fakeBotAPI{validToken: "123:ABC", updatesJSON: `[]`}
	dialer := newTestDialer(t, api)

	client, err := dialer.Dial("123:ABC")
	require.NoError(t, err)

	require.NoError(t, client.SendText(context.Background(), 42, "hello"))
	assert.Equal(t, []string{"hello"}, api.sent)
}
