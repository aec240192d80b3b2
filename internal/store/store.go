// Package store owns Message persistence. It is the single source of truth
// for message status and the only component allowed to mutate it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"replydesk/internal/models"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound is returned when no message exists for the requested id
	ErrNotFound = errors.New("message not found")
	// ErrInvalidTransition is returned for a status change the lifecycle forbids
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store persists Message records in a SQL table keyed by id.
// All mutations go through a single mutex so concurrent read-modify-persist
// cycles on the same record are linearized.
type Store struct {
	db *sqlx.DB
	mu sync.Mutex
}

// New creates a store over an existing database connection
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CreateMessagesTable creates the messages table and its indexes
func (s *Store) CreateMessagesTable(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.db.DriverName()) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure messages schema: %w", err)
		}
	}
	return nil
}

// schemaStatements returns the DDL for the given driver. MySQL takes its
// indexes inline; postgres needs them as separate statements.
func schemaStatements(driver string) []string {
	if driver == "postgres" {
		return []string{
			`CREATE TABLE IF NOT EXISTS messages (
				id VARCHAR(64) PRIMARY KEY,
				text TEXT NOT NULL,
				channel_id VARCHAR(64) NOT NULL,
				channel_name VARCHAR(255) NOT NULL DEFAULT '',
				user_id VARCHAR(64) NOT NULL,
				user_name VARCHAR(255) NOT NULL DEFAULT '',
				thread_id VARCHAR(64),
				source_ts VARCHAR(64) NOT NULL DEFAULT '',
				status VARCHAR(16) NOT NULL,
				generated_reply TEXT,
				edited_reply TEXT,
				error TEXT,
				note TEXT,
				is_template BOOLEAN NOT NULL DEFAULT FALSE,
				feature_vector TEXT,
				received_at TIMESTAMPTZ NOT NULL,
				processed_at TIMESTAMPTZ,
				sent_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_status ON messages (status)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_template ON messages (is_template)`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR(64) PRIMARY KEY,
			text TEXT NOT NULL,
			channel_id VARCHAR(64) NOT NULL,
			channel_name VARCHAR(255) NOT NULL DEFAULT '',
			user_id VARCHAR(64) NOT NULL,
			user_name VARCHAR(255) NOT NULL DEFAULT '',
			thread_id VARCHAR(64),
			source_ts VARCHAR(64) NOT NULL DEFAULT '',
			status VARCHAR(16) NOT NULL,
			generated_reply TEXT,
			edited_reply TEXT,
			error TEXT,
			note TEXT,
			is_template BOOLEAN NOT NULL DEFAULT FALSE,
			feature_vector JSON,
			received_at TIMESTAMP NOT NULL,
			processed_at TIMESTAMP NULL,
			sent_at TIMESTAMP NULL,
			INDEX idx_messages_status (status),
			INDEX idx_messages_template (is_template)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	}
}

// messageRow maps a table row; the feature vector travels as JSON text
type messageRow struct {
	models.Message
	RawVector *string `db:"feature_vector"`
}

func (r *messageRow) toMessage() (*models.Message, error) {
	msg := r.Message
	if r.RawVector != nil && *r.RawVector != "" {
		var vector []float64
		if err := json.Unmarshal([]byte(*r.RawVector), &vector); err != nil {
			return nil, fmt.Errorf("failed to decode feature vector for message %s: %w", msg.ID, err)
		}
		msg.FeatureVector = vector
	}
	return &msg, nil
}

const messageColumns = `id, text, channel_id, channel_name, user_id, user_name,
	thread_id, source_ts, status, generated_reply, edited_reply, error, note,
	is_template, feature_vector, received_at, processed_at, sent_at`

// CreateMessage persists a new message record
func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.db.Rebind(`
		INSERT INTO messages (id, text, channel_id, channel_name, user_id, user_name,
			thread_id, source_ts, status, is_template, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.Text, msg.ChannelID, msg.ChannelName, msg.UserID, msg.UserName,
		msg.ThreadID, msg.SourceTimestamp, msg.Status, msg.IsTemplate, msg.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetMessage fetches a single message by id
func (s *Store) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var row messageRow
	query := s.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE id = ?`)

	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	return row.toMessage()
}

// ListMessages returns messages, newest first, optionally filtered by status
func (s *Store) ListMessages(ctx context.Context, status *models.Status) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages ORDER BY received_at DESC`
	args := []interface{}{}
	if status != nil {
		query = s.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE status = ? ORDER BY received_at DESC`)
		args = append(args, *status)
	}

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]models.Message, 0, len(rows))
	for i := range rows {
		msg, err := rows[i].toMessage()
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

// ListTemplates returns template messages whose feature vector has been computed
func (s *Store) ListTemplates(ctx context.Context) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE is_template = TRUE AND feature_vector IS NOT NULL
		ORDER BY received_at DESC`

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make([]models.Message, 0, len(rows))
	for i := range rows {
		msg, err := rows[i].toMessage()
		if err != nil {
			return nil, err
		}
		templates = append(templates, *msg)
	}
	return templates, nil
}

// CountMessages returns the total number of stored messages
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// Transition moves a message to a new lifecycle status. It is the sole entry
// point for status changes: the transition is validated against the lifecycle
// table, timestamps are maintained, and a request for the current status is an
// idempotent no-op. The updated message is returned.
func (s *Store) Transition(ctx context.Context, id string, to models.Status) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	if msg.Status == to {
		return msg, nil
	}
	if !models.CanTransition(msg.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, msg.Status, to)
	}

	now := time.Now().UTC()
	msg.Status = to
	switch to {
	case models.StatusCompleted:
		msg.ProcessedAt = &now
	case models.StatusSent:
		msg.SentAt = &now
	case models.StatusPending:
		// Explicit retry of a failed message clears the recorded error
		msg.Error = nil
	}

	query := s.db.Rebind(`UPDATE messages SET status = ?, error = ?, processed_at = ?, sent_at = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, msg.Status, msg.Error, msg.ProcessedAt, msg.SentAt, id); err != nil {
		return nil, fmt.Errorf("failed to persist transition for message %s: %w", id, err)
	}
	return msg, nil
}

// Fail moves a message to failed and records a human-readable error. Status
// and error are written in one statement under one critical section, so no
// reader ever observes a failed message without its error and no interleaved
// retry gets its cleared error clobbered afterwards.
func (s *Store) Fail(ctx context.Context, id string, cause string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(msg.Status, models.StatusFailed) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, msg.Status, models.StatusFailed)
	}

	msg.Status = models.StatusFailed
	msg.Error = &cause

	query := s.db.Rebind(`UPDATE messages SET status = ?, error = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, msg.Status, cause, id); err != nil {
		return nil, fmt.Errorf("failed to record failure for message %s: %w", id, err)
	}
	return msg, nil
}

// SetGeneratedReply stores the model-produced candidate reply
func (s *Store) SetGeneratedReply(ctx context.Context, id, reply string) error {
	return s.updateColumn(ctx, id, "generated_reply", reply)
}

// SetEditedReply stores an operator override of the candidate reply
func (s *Store) SetEditedReply(ctx context.Context, id, reply string) error {
	return s.updateColumn(ctx, id, "edited_reply", reply)
}

// SetNote attaches an audit note to the message
func (s *Store) SetNote(ctx context.Context, id, note string) error {
	return s.updateColumn(ctx, id, "note", note)
}

// SetTemplate flags or unflags a message's reply as reusable for auto-matching
func (s *Store) SetTemplate(ctx context.Context, id string, isTemplate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE messages SET is_template = ? WHERE id = ?`), isTemplate, id); err != nil {
		return fmt.Errorf("failed to update template flag for message %s: %w", id, err)
	}
	return nil
}

// SaveFeatureVector caches the computed feature vector for a message.
// Message text is immutable, so recomputation always yields the same value.
func (s *Store) SaveFeatureVector(ctx context.Context, id string, vector []float64) error {
	encoded, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to encode feature vector: %w", err)
	}
	return s.updateColumn(ctx, id, "feature_vector", string(encoded))
}

func (s *Store) updateColumn(ctx context.Context, id, column, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.db.Rebind(fmt.Sprintf(`UPDATE messages SET %s = ? WHERE id = ?`, column))
	if _, err := s.db.ExecContext(ctx, query, value, id); err != nil {
		return fmt.Errorf("failed to update %s for message %s: %w", column, id, err)
	}
	return nil
}
