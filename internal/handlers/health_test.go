package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"replydesk/internal/config"
	"replydesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	c, rec := newTestContext(t, http.MethodGet, "/health", "")

	require.NoError(t, HealthHandler("8080")(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var response models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "8080", response.Port)
	assert.WithinDuration(t, time.Now().UTC(), response.Timestamp, 5*time.Second)
}

func TestStatusHandler(t *testing.T) {
	cfg := &config.Config{
		Port:         "9090",
		Version:      "2.1.0",
		WebhookPath:  "hooks/chat",
		AutoGenerate: true,
	}
	counters := NewCounters()
	counters.MessageReceived()
	counters.MessageReceived()
	counters.ConnectionServed()
	st := newMemStore(
		&models.Message{ID: "m1", Status: models.StatusPending},
		&models.Message{ID: "m2", Status: models.StatusSent},
		&models.Message{ID: "m3", Status: models.StatusCompleted},
	)

	c, rec := newTestContext(t, http.MethodGet, "/status", "")

	require.NoError(t, StatusHandler(cfg, counters, st)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var response models.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "replydesk", response.Server)
	assert.Equal(t, "2.1.0", response.Version)
	assert.Equal(t, "9090", response.Port)
	assert.Equal(t, "hooks/chat", response.WebhookPath)
	assert.Equal(t, int64(2), response.MessagesReceived)
	assert.Equal(t, 3, response.MessagesTotal)
	assert.Equal(t, int64(1), response.Connections)
	assert.True(t, response.AutoGenerate)
	assert.GreaterOrEqual(t, response.UptimeSeconds, 0.0)
}

func TestTestResponseHandler(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("delivers the canned reply", func(t *testing.T) {
		relay := &fakeRelay{configured: true}

		c, rec := newTestContext(t, http.MethodPost, "/test-response", "")

		require.NoError(t, TestResponseHandler(relay, logger)(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var result models.TestResponseResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.TestSent)
		require.Len(t, relay.sent, 1)
		assert.Equal(t, testReplyText, relay.sent[0])
	})

	t.Run("honors a destination channel override", func(t *testing.T) {
		relay := &fakeRelay{configured: true}

		c, rec := newTestContext(t, http.MethodPost, "/test-response", `{"id":"C9","name":"ops"}`)

		require.NoError(t, TestResponseHandler(relay, logger)(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var result models.TestResponseResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Contains(t, result.Message, "C9")
	})

	t.Run("reports relay failure", func(t *testing.T) {
		relay := &fakeRelay{configured: false, err: errors.New("relay endpoint not configured")}

		c, rec := newTestContext(t, http.MethodPost, "/test-response", "")

		require.NoError(t, TestResponseHandler(relay, logger)(c))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var result models.TestResponseResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.False(t, result.TestSent)
		assert.Contains(t, result.Message, "not configured")
	})
}
