package models

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// InboundChannel identifies the channel an event originated from
type InboundChannel struct {
	ID   string `json:"id" example:"C1"`       // Channel identifier
	Name string `json:"name" example:"support"` // Channel display name
}

// InboundUser identifies the author of an inbound event
type InboundUser struct {
	ID   string `json:"id" example:"U1"`    // User identifier
	Name string `json:"name" example:"jane"` // Display name, may be blank
}

// InboundEvent is the webhook payload delivered by the chat platform.
// Unknown fields are ignored during decoding.
// @Description Inbound chat-platform webhook event
type InboundEvent struct {
	Text     string         `json:"text" example:"Can you help with the API docs?"` // Message content
	Channel  InboundChannel `json:"channel"`                                        // Source channel
	User     InboundUser    `json:"user"`                                           // Author
	ThreadID *string        `json:"thread_id,omitempty"`                            // Thread correlation, if any
	TS       string         `json:"ts" example:"1726000000.000100"`                 // Source timestamp string
}

// Validate checks that every field the ingress requires is present
func (e *InboundEvent) Validate() error {
	var missing []string
	if strings.TrimSpace(e.Text) == "" {
		missing = append(missing, "text")
	}
	if e.Channel.ID == "" {
		missing = append(missing, "channel.id")
	}
	if e.User.ID == "" {
		missing = append(missing, "user.id")
	}
	if e.TS == "" {
		missing = append(missing, "ts")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DisplayName returns the author's display name, falling back to a
// title-cased rendering of the technical handle when it is blank.
func (e *InboundEvent) DisplayName() string {
	if name := strings.TrimSpace(e.User.Name); name != "" {
		return name
	}
	return cases.Title(language.English).String(e.User.ID)
}

// EditReplyRequest sets or clears the operator override for a reply
// @Description Reply edit request
type EditReplyRequest struct {
	Reply string `json:"reply" example:"Thanks for reaching out!"` // Override text; empty clears the override
}

// TemplateRequest toggles whether a message's exchange is reusable
// @Description Template toggle request
type TemplateRequest struct {
	IsTemplate bool `json:"is_template" example:"true"` // Mark or unmark as template
}

// RelayPayload is the body posted to the outbound relay endpoint
// @Description Outbound relay request payload
type RelayPayload struct {
	MessageID           string  `json:"message_id"`            // Message being answered
	ResponseText        string  `json:"response_text"`         // Reply text to deliver
	Channel             string  `json:"channel"`               // Destination channel identifier
	ThreadID            *string `json:"thread_id"`             // Thread to reply in, nullable
	OriginalMessageText string  `json:"original_message_text"` // Inbound text, for context
	UserIDMention       string  `json:"user_id_mention"`       // Originating user identifier
	Timestamp           string  `json:"timestamp"`             // Delivery timestamp, RFC 3339
}
