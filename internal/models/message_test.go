package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to sent via auto-response", StatusPending, StatusSent, true},
		{"pending to dismissed", StatusPending, StatusDismissed, true},
		{"pending to failed on refused auto-response", StatusPending, StatusFailed, true},
		{"pending to completed skips processing", StatusPending, StatusCompleted, false},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"processing to dismissed", StatusProcessing, StatusDismissed, true},
		{"processing to sent skips completion", StatusProcessing, StatusSent, false},
		{"completed to sent", StatusCompleted, StatusSent, true},
		{"completed to dismissed", StatusCompleted, StatusDismissed, true},
		{"completed back to pending", StatusCompleted, StatusPending, false},
		{"failed retried to pending", StatusFailed, StatusPending, true},
		{"failed to dismissed", StatusFailed, StatusDismissed, true},
		{"failed straight to completed", StatusFailed, StatusCompleted, false},
		{"sent is terminal", StatusSent, StatusPending, false},
		{"sent cannot be dismissed", StatusSent, StatusDismissed, false},
		{"dismissed is terminal", StatusDismissed, StatusPending, false},
		{"dismissed cannot be retried", StatusDismissed, StatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanTransition_IdempotentSameState(t *testing.T) {
	all := []Status{StatusPending, StatusProcessing, StatusCompleted, StatusSent, StatusDismissed, StatusFailed}
	for _, s := range all {
		assert.True(t, CanTransition(s, s), "transition %s -> %s should be an allowed no-op", s, s)
	}
}

func TestCanTransition_Totality(t *testing.T) {
	// Every (state, state) pair resolves to an explicit yes or no; nothing panics
	// and unknown statuses never gain transitions.
	all := []Status{StatusPending, StatusProcessing, StatusCompleted, StatusSent, StatusDismissed, StatusFailed}
	for _, from := range all {
		for _, to := range all {
			_ = CanTransition(from, to)
		}
	}
	assert.False(t, CanTransition(Status("bogus"), StatusPending))
	assert.False(t, Status("bogus").IsValid())
	for _, s := range all {
		assert.True(t, s.IsValid())
	}
}

func TestMessage_ReplyText(t *testing.T) {
	generated := "generated reply"
	edited := "edited reply"
	empty := ""

	tests := []struct {
		name     string
		msg      Message
		expected string
	}{
		{"no reply at all", Message{}, ""},
		{"generated only", Message{GeneratedReply: &generated}, "generated reply"},
		{"edited wins over generated", Message{GeneratedReply: &generated, EditedReply: &edited}, "edited reply"},
		{"empty edit falls back to generated", Message{GeneratedReply: &generated, EditedReply: &empty}, "generated reply"},
		{"edited only", Message{EditedReply: &edited}, "edited reply"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.msg.ReplyText())
			assert.Equal(t, tt.expected != "", tt.msg.HasReply())
		})
	}
}

func TestInboundEvent_Validate(t *testing.T) {
	valid := InboundEvent{
		Text:    "Can you help with the API docs?",
		Channel: InboundChannel{ID: "C1", Name: "support"},
		User:    InboundUser{ID: "U1", Name: "jane"},
		TS:      "1726000000.000100",
	}

	t.Run("valid event", func(t *testing.T) {
		e := valid
		assert.NoError(t, e.Validate())
	})

	t.Run("missing text", func(t *testing.T) {
		e := valid
		e.Text = "   "
		err := e.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "text")
	})

	t.Run("missing channel id", func(t *testing.T) {
		e := valid
		e.Channel.ID = ""
		err := e.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "channel.id")
	})

	t.Run("missing user id and ts lists both", func(t *testing.T) {
		e := valid
		e.User.ID = ""
		e.TS = ""
		err := e.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "user.id")
		assert.Contains(t, err.Error(), "ts")
	})
}

func TestInboundEvent_DisplayName(t *testing.T) {
	e := InboundEvent{User: InboundUser{ID: "jane doe", Name: "Jane Doe"}}
	assert.Equal(t, "Jane Doe", e.DisplayName())

	e = InboundEvent{User: InboundUser{ID: "jane doe", Name: "  "}}
	assert.Equal(t, "Jane Doe", e.DisplayName())

	e = InboundEvent{User: InboundUser{ID: "u123"}}
	assert.Equal(t, "U123", e.DisplayName())
}
