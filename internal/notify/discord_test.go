package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pptracker/recorder/internal/config"
)

func TestDiscord_DisabledWithoutCredentials(t *testing.T) {
	d := NewDiscord(config.DiscordConfig{}, nil)
	defer d.Close()

	assert.False(t, d.Enabled())
	// must be a silent no-op
	d.Send("should go nowhere")
	assert.Zero(t, d.queue.Len())
}

func TestDiscord_PostsChannelMessage(t *testing.T) {
	received := make(chan *http.Request, 1)
	bodies := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- string(body)
		received <- r
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDiscord(config.DiscordConfig{BotToken: "tok", ChannelID: "123"}, nil)
	d.apiBase = srv.URL
	defer d.Close()

	d.Send("Alice requested date 2024-01-01 for all players")

	select {
	case r := <-received:
		assert.Equal(t, "/channels/123/messages", r.URL.Path)
		assert.Equal(t, "Bot tok", r.Header.Get("Authorization"))

		var payload map[string]string
		require.NoError(t, json.Unmarshal([]byte(<-bodies), &payload))
		assert.Equal(t, "Alice requested date 2024-01-01 for all players", payload["content"])
	case <-time.After(2 * time.Second):
		t.Fatal("notification never delivered")
	}
}

func TestDiscord_DeliveryFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewDiscord(config.DiscordConfig{BotToken: "tok", ChannelID: "123"}, nil)
	d.apiBase = srv.URL

	// must not panic or block
	d.Send("doomed message")
	d.Close()
}
