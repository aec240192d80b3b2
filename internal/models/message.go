package models

import "time"

// Status is the lifecycle state of a message
type Status string

const (
	StatusPending    Status = "pending"    // created, unprocessed
	StatusProcessing Status = "processing" // generation in flight
	StatusCompleted  Status = "completed"  // a reply exists, awaiting send
	StatusSent       Status = "sent"       // relay confirmed delivery
	StatusDismissed  Status = "dismissed"  // operator declined the message
	StatusFailed     Status = "failed"     // generation or delivery error
)

// allowedTransitions maps each status to the statuses it may move to.
// pending -> sent covers the auto-response path, which bypasses generation;
// pending -> failed covers an auto-response whose delivery was refused.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusSent, StatusFailed, StatusDismissed},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusDismissed},
	StatusCompleted:  {StatusSent, StatusDismissed},
	StatusFailed:     {StatusPending, StatusDismissed},
	StatusSent:       {},
	StatusDismissed:  {},
}

// IsValid reports whether s is a known status value
func (s Status) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether a message may move from one status to another.
// A transition to the current status is always allowed (idempotent no-op).
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Message represents an inbound chat event tracked through its review lifecycle
// @Description Tracked inbound message with its lifecycle state and candidate reply
type Message struct {
	ID              string     `json:"id" db:"id" example:"7f6c1a2e-4b3d-4f1a-9c8e-2d5b6a7c8d9e"`       // Opaque unique identifier
	Text            string     `json:"text" db:"text" example:"Can you help with the API docs?"`         // Original inbound content
	ChannelID       string     `json:"channel_id" db:"channel_id" example:"C1"`                          // Source channel identifier
	ChannelName     string     `json:"channel_name" db:"channel_name" example:"support"`                 // Source channel display name
	UserID          string     `json:"user_id" db:"user_id" example:"U1"`                                // Author identifier
	UserName        string     `json:"user_name" db:"user_name" example:"Jane"`                          // Author display name
	ThreadID        *string    `json:"thread_id,omitempty" db:"thread_id"`                               // Thread correlation, if any
	SourceTimestamp string     `json:"source_ts" db:"source_ts" example:"1726000000.000100"`             // Timestamp string from the source platform
	Status          Status     `json:"status" db:"status" example:"pending"`                             // Lifecycle status
	GeneratedReply  *string    `json:"generated_reply,omitempty" db:"generated_reply"`                   // Model-produced candidate reply
	EditedReply     *string    `json:"edited_reply,omitempty" db:"edited_reply"`                         // Operator override, wins over generated
	Error           *string    `json:"error,omitempty" db:"error"`                                       // Last failure description
	Note            *string    `json:"note,omitempty" db:"note"`                                         // Audit note, e.g. auto-response match details
	IsTemplate      bool       `json:"is_template" db:"is_template" example:"false"`                     // Reply reusable for auto-matching
	FeatureVector   []float64  `json:"feature_vector,omitempty" db:"-"`                                  // Cached numeric representation of Text
	ReceivedAt      time.Time  `json:"received_at" db:"received_at"`                                     // Creation time
	ProcessedAt     *time.Time `json:"processed_at,omitempty" db:"processed_at"`                         // Generation completion time
	SentAt          *time.Time `json:"sent_at,omitempty" db:"sent_at"`                                   // Relay confirmation time
}

// ReplyText returns the text that would be sent for this message.
// An operator edit always wins over the generated candidate.
func (m *Message) ReplyText() string {
	if m.EditedReply != nil && *m.EditedReply != "" {
		return *m.EditedReply
	}
	if m.GeneratedReply != nil {
		return *m.GeneratedReply
	}
	return ""
}

// HasReply reports whether any reply text exists for this message
func (m *Message) HasReply() bool {
	return m.ReplyText() != ""
}
