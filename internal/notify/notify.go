// Package notify sends operator escalation emails via SendGrid when a
// message fails generation and nobody is watching the queue.
package notify

import (
	"fmt"
	"time"

	"replydesk/internal/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Notifier sends escalation emails for failed messages
type Notifier struct {
	apiKey          string
	escalationEmail string
}

// New creates a notifier; both values may be empty, in which case
// Configured reports false and sends are skipped by callers.
func New(apiKey, escalationEmail string) *Notifier {
	return &Notifier{
		apiKey:          apiKey,
		escalationEmail: escalationEmail,
	}
}

// Configured reports whether escalation emails can be sent
func (n *Notifier) Configured() bool {
	return n.apiKey != "" && n.escalationEmail != ""
}

// SendFailureEscalation emails the operator about a message that failed
func (n *Notifier) SendFailureEscalation(msg *models.Message, cause string) error {
	if !n.Configured() {
		return fmt.Errorf("escalation email not configured")
	}

	from := mail.NewEmail("ReplyDesk", "noreply@replydesk.local")
	to := mail.NewEmail("Operator", n.escalationEmail)

	subject := fmt.Sprintf("Reply generation failed for message %s", msg.ID)
	body := fmt.Sprintf(`Reply generation failed for an inbound message.

Message ID: %s
From: %s (%s)
Channel: %s (%s)
Received: %s
Failure: %s

Original message:
%s`,
		msg.ID, msg.UserName, msg.UserID, msg.ChannelName, msg.ChannelID,
		msg.ReceivedAt.Format(time.RFC3339), cause, msg.Text)

	message := mail.NewSingleEmail(from, subject, to, body, body)

	client := sendgrid.NewSendClient(n.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send escalation email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}

	return nil
}
