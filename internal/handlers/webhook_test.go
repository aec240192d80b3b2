package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"replydesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookHandler(t *testing.T) {
	logger := zerolog.Nop()

	validPayload := `{
		"text": "Can you help with the API docs?",
		"channel": {"id": "C1", "name": "support"},
		"user": {"id": "U1", "name": "jane"},
		"ts": "1726000000.000100"
	}`

	t.Run("admits a valid event", func(t *testing.T) {
		st := newMemStore()
		queue := &fakeQueue{}
		counters := NewCounters()

		c, rec := newTestContext(t, http.MethodPost, "/webhook", validPayload)

		require.NoError(t, WebhookHandler(st, queue, counters, logger)(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var ack models.WebhookAck
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
		assert.Equal(t, "received", ack.Status)
		require.NotEmpty(t, ack.MessageID)

		created := st.get(ack.MessageID)
		require.NotNil(t, created)
		assert.Equal(t, models.StatusPending, created.Status)
		assert.Equal(t, "Can you help with the API docs?", created.Text)
		assert.Equal(t, "C1", created.ChannelID)
		assert.Equal(t, "jane", created.UserName)
		assert.Equal(t, int64(1), counters.MessagesReceived())
		require.Equal(t, 1, queue.len())
		assert.Equal(t, ack.MessageID, queue.events[0].MessageID)
	})

	t.Run("blank user name falls back to title-cased handle", func(t *testing.T) {
		st := newMemStore()
		queue := &fakeQueue{}

		payload := `{
			"text": "hello",
			"channel": {"id": "C1"},
			"user": {"id": "jane smith", "name": ""},
			"ts": "1"
		}`
		c, rec := newTestContext(t, http.MethodPost, "/webhook", payload)

		require.NoError(t, WebhookHandler(st, queue, NewCounters(), logger)(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var ack models.WebhookAck
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
		assert.Equal(t, "Jane Smith", st.get(ack.MessageID).UserName)
	})

	t.Run("unknown payload fields are ignored", func(t *testing.T) {
		st := newMemStore()
		queue := &fakeQueue{}

		payload := `{
			"text": "hi",
			"channel": {"id": "C1", "name": "support"},
			"user": {"id": "U1", "name": "jane"},
			"ts": "1",
			"team": "T1",
			"event_id": "Ev123"
		}`
		c, rec := newTestContext(t, http.MethodPost, "/webhook", payload)

		require.NoError(t, WebhookHandler(st, queue, NewCounters(), logger)(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing required fields create no state", func(t *testing.T) {
		tests := []struct {
			name    string
			payload string
			missing string
		}{
			{
				name:    "no text",
				payload: `{"channel":{"id":"C1"},"user":{"id":"U1"},"ts":"1"}`,
				missing: "text",
			},
			{
				name:    "whitespace text",
				payload: `{"text":"   ","channel":{"id":"C1"},"user":{"id":"U1"},"ts":"1"}`,
				missing: "text",
			},
			{
				name:    "no channel id",
				payload: `{"text":"hi","channel":{"name":"support"},"user":{"id":"U1"},"ts":"1"}`,
				missing: "channel.id",
			},
			{
				name:    "no user id",
				payload: `{"text":"hi","channel":{"id":"C1"},"user":{"name":"jane"},"ts":"1"}`,
				missing: "user.id",
			},
			{
				name:    "no timestamp",
				payload: `{"text":"hi","channel":{"id":"C1"},"user":{"id":"U1"}}`,
				missing: "ts",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				st := newMemStore()
				queue := &fakeQueue{}
				counters := NewCounters()

				c, rec := newTestContext(t, http.MethodPost, "/webhook", tt.payload)

				require.NoError(t, WebhookHandler(st, queue, counters, logger)(c))
				assert.Equal(t, http.StatusBadRequest, rec.Code)

				var errResp models.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
				assert.Contains(t, errResp.Error, tt.missing)

				assert.Empty(t, st.messages, "a rejected event must not create a message")
				assert.Equal(t, 0, queue.len())
				assert.Equal(t, int64(0), counters.MessagesReceived())
			})
		}
	})

	t.Run("malformed JSON is rejected inert", func(t *testing.T) {
		st := newMemStore()
		queue := &fakeQueue{}

		c, rec := newTestContext(t, http.MethodPost, "/webhook", `{"text": "unterminated`)

		require.NoError(t, WebhookHandler(st, queue, NewCounters(), logger)(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, st.messages)
	})

	t.Run("full queue still acknowledges the event", func(t *testing.T) {
		st := newMemStore()
		queue := &fakeQueue{full: true}

		c, rec := newTestContext(t, http.MethodPost, "/webhook", validPayload)

		require.NoError(t, WebhookHandler(st, queue, NewCounters(), logger)(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var ack models.WebhookAck
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
		assert.Equal(t, models.StatusPending, st.get(ack.MessageID).Status)
	})
}
