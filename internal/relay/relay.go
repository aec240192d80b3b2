// Package relay delivers finalized reply text to the external relay endpoint
// that posts it back into the originating chat platform.
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

	"replydesk/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrRelayNotConfigured means no relay endpoint URL is configured
	ErrRelayNotConfigured = errors.New("relay endpoint not configured")
	// ErrDeliveryFailed means the relay rejected the delivery or never answered
	ErrDeliveryFailed = errors.New("relay delivery failed")
)

// Relay posts approved replies to the configured endpoint. Delivery is a
// single POST: it is not retried here, and a failed delivery leaves the
// message in its prior state for the caller to handle.
type Relay struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

// New creates a relay for the given endpoint URL
func New(endpoint string, timeout time.Duration, logger zerolog.Logger) *Relay {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Relay{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Configured reports whether a relay endpoint is set
func (r *Relay) Configured() bool {
	return r.endpoint != ""
}

// Send delivers replyText for the given message. A 2xx response is success;
// anything else is ErrDeliveryFailed with the status and body in the message.
func (r *Relay) Send(ctx context.Context, msg *models.Message, replyText string) error {
	if !r.Configured() {
		return ErrRelayNotConfigured
	}

	payload := models.RelayPayload{
		MessageID:           msg.ID,
		ResponseText:        replyText,
		Channel:             msg.ChannelID,
		ThreadID:            msg.ThreadID,
		OriginalMessageText: msg.Text,
		UserIDMention:       msg.UserID,
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode relay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: relay returned %d: %s", ErrDeliveryFailed, resp.StatusCode, string(detail))
	}

	r.logger.Info().
		Str("message_id", msg.ID).
		Str("channel", msg.ChannelID).
		Msg("Reply delivered via relay")
	return nil
}
