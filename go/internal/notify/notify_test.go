package notify

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	notes  []string
	quicks []string
}

func (r *recorder) Notify(message string)      { r.notes = append(r.notes, message) }
func (r *recorder) QuickNotify(message string) { r.quicks = append(r.quicks, message) }

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b, LogNotifier{}}

	m.Notify("Failed to start: Provider not specified.")
	m.QuickNotify("Save game synced")

	for _, r := range []*recorder{a, b} {
		assert.Equal(t, []string{"Failed to start: Provider not specified."}, r.notes)
		assert.Equal(t, []string{"Save game synced"}, r.quicks)
	}
}

func TestHubBroadcastsToOverlays(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1700000000000))
	hub := NewHub(DefaultHubConfig(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Start(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	hub.QuickNotify("Save game synced")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, Message{Kind: KindQuick, Text: "Save game synced", Time: 1700000000000}, msg)

	cancel()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubWithoutOverlaysDropsQuietly(t *testing.T) {
	hub := NewHub(DefaultHubConfig(), clockwork.NewFakeClock())
	for i := 0; i < 100; i++ {
		hub.Notify("nobody listening")
	}
	assert.Equal(t, 0, hub.Count())
}

func TestHubReplaysLastNotificationOnConnect(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1700000000000))
	hub := NewHub(DefaultHubConfig(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Start(ctx)

	hub.Notify("Failed to start: Provider dropbox does not exist.")
	hub.QuickNotify("Save game synced")
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.last != nil
	}, time.Second, 5*time.Millisecond)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, KindNotify, msg.Kind)
	assert.Equal(t, "Failed to start: Provider dropbox does not exist.", msg.Text)
}
