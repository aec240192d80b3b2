package models

import "time"

// HealthResponse represents a basic health check response
// @Description Health check response
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`                 // Health status
	Timestamp time.Time `json:"timestamp" example:"2023-01-01T00:00:00Z"` // Timestamp of the check
	Port      string    `json:"port" example:"8080"`                      // Listening port
}

// StatusResponse represents server introspection data
// @Description Server status and counters
type StatusResponse struct {
	Server           string  `json:"server" example:"replydesk"`   // Server name
	Version          string  `json:"version" example:"1.0.0"`      // Application version
	Port             string  `json:"port" example:"8080"`          // Listening port
	WebhookPath      string  `json:"webhook_path" example:"webhook"` // Configured ingress path
	MessagesReceived int64   `json:"messages_received" example:"42"` // Webhook events admitted since start
	MessagesTotal    int     `json:"messages_total" example:"128"`   // Messages currently persisted
	Connections      int64   `json:"connections" example:"120"`      // HTTP requests served since start
	UptimeSeconds    float64 `json:"uptime_seconds" example:"3600"`  // Seconds since start
	AutoGenerate     bool    `json:"auto_generate" example:"true"`   // Generate-on-receipt toggle
}

// WebhookAck is returned after an inbound event has been admitted
// @Description Webhook acknowledgment
type WebhookAck struct {
	Status    string `json:"status" example:"received"` // Always "received" on success
	MessageID string `json:"message_id"`                // Identifier of the created message
}

// ErrorResponse carries a diagnostic for a failed request
// @Description Error diagnostic
type ErrorResponse struct {
	Error string `json:"error" example:"missing required fields: text"` // Human-readable diagnostic
}

// MatchResult is one template exchange scored against a message
// @Description Scored template match
type MatchResult struct {
	MessageID  string  `json:"message_id"`                    // Template message identifier
	Text       string  `json:"text"`                          // Template inbound text
	Reply      string  `json:"reply"`                         // Template reply text
	Confidence float64 `json:"confidence" example:"87.5"`     // Similarity confidence, 0-100
	Tier       string  `json:"tier" example:"high"`           // Confidence tier label
}

// MessageDetail is a message together with its scored template matches
// @Description Message detail with similarity matches
type MessageDetail struct {
	Message Message       `json:"message"` // The message itself
	Matches []MatchResult `json:"matches"` // Templates above the display threshold, best first
}

// TestResponseResult reports the outcome of the synthetic self-test
// @Description Self-test outcome
type TestResponseResult struct {
	TestSent bool   `json:"test_sent" example:"true"` // Whether the canned reply was relayed
	Message  string `json:"message"`                  // Outcome description
}
