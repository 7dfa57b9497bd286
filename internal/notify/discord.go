package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pptracker/recorder/internal/channel"
	"github.com/pptracker/recorder/internal/config"
)

const defaultAPIBase = "https://discord.com/api/v10"

const sendQueueSize = 64

// Discord posts audit messages to a Discord channel via the bot API. Messages
// are queued and delivered by a background goroutine; a full queue drops the
// message with a warning so the query path never waits on Discord.
type Discord struct {
	cfg        config.DiscordConfig
	apiBase    string
	httpClient *http.Client
	logger     *slog.Logger
	queue      *channel.Buffered[string]
	done       chan struct{}
}

// NewDiscord creates the notifier and starts its delivery goroutine.
func NewDiscord(cfg config.DiscordConfig, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Discord{
		cfg:        cfg,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		queue:      channel.NewBuffered[string](sendQueueSize),
		done:       make(chan struct{}),
	}
	go d.run()
	return d
}

// Enabled reports whether credentials are configured. A disabled notifier
// silently discards messages.
func (d *Discord) Enabled() bool {
	return d.cfg.BotToken != "" && d.cfg.ChannelID != ""
}

// Send queues a message for delivery. Never blocks.
func (d *Discord) Send(message string) {
	if !d.Enabled() {
		return
	}
	if !d.queue.TrySend(message) {
		d.logger.Warn("Notification queue full, dropping audit message")
	}
}

// Close stops accepting messages and waits for the delivery goroutine to
// drain what was already queued.
func (d *Discord) Close() {
	d.queue.Close()
	<-d.done
}

func (d *Discord) run() {
	defer close(d.done)
	for message := range d.queue.Receive() {
		if err := d.post(message); err != nil {
			// Best effort: log and move on, never retry.
			d.logger.Warn("Failed to send audit notification", "error", err)
		}
	}
}

func (d *Discord) post(message string) error {
	body, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", d.apiBase, d.cfg.ChannelID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+d.cfg.BotToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification returned status %d", resp.StatusCode)
	}
	return nil
}
