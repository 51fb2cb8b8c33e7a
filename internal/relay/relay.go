package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"
)

// FallbackReply is returned to the client when the upstream automation
// endpoint fails or answers with something we cannot parse. Upstream faults
// never surface as errors to the chat UI.
const FallbackReply = "Sorry, something went wrong. Please try again in a moment."

// maxResponseBytes caps how much of the upstream response body is read.
const maxResponseBytes = 1 << 20

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = errors.New("chat webhook is not configured")

// Message is one user chat message forwarded upstream.
type Message struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
}

// Client forwards chat messages to the automation webhook and extracts the
// assistant reply from its response.
type Client struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a relay client. An empty webhookURL yields a client whose
// Send always returns ErrNotConfigured.
func NewClient(webhookURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Configured reports whether a webhook URL is set.
func (c *Client) Configured() bool {
	return c.webhookURL != ""
}

// WebhookURL returns the configured webhook URL.
func (c *Client) WebhookURL() string {
	return c.webhookURL
}

// Send forwards the message and returns the extracted reply. Upstream
// failures return FallbackReply with a nil error; only a missing
// configuration is an error the caller must handle.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Chat webhook call failed", slog.Any("error", err))
		return FallbackReply, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Chat webhook returned non-success status",
			slog.Int("status", resp.StatusCode))
		return FallbackReply, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Warn("Failed to read chat webhook response", slog.Any("error", err))
		return FallbackReply, nil
	}

	reply := ExtractReply(raw)
	if reply == "" {
		c.logger.Warn("Chat webhook response had no recognizable reply field")
		return FallbackReply, nil
	}

	return reply, nil
}

// ExtractReply pulls the assistant text out of an upstream response body.
// Automation flows disagree on the field name, so several are accepted in
// order of preference. A bare string body is also accepted.
func ExtractReply(raw []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, field := range []string{"output", "reply", "response", "message"} {
			value, ok := payload[field]
			if !ok {
				continue
			}
			var text string
			if err := json.Unmarshal(value, &text); err == nil && text != "" {
				return text
			}
		}
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return ""
}
