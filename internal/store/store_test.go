package store

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"testing"
	"time"

	"replydesk/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messageTestColumns = []string{
	"id", "text", "channel_id", "channel_name", "user_id", "user_name",
	"thread_id", "source_ts", "status", "generated_reply", "edited_reply",
	"error", "note", "is_template", "feature_vector", "received_at",
	"processed_at", "sent_at",
}

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return New(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func messageRowValues(id string, status models.Status, vector []float64) []driverValue {
	var rawVector interface{}
	if vector != nil {
		encoded, _ := json.Marshal(vector)
		rawVector = string(encoded)
	}
	return []driverValue{
		id, "Can you help with the API docs?", "C1", "support", "U1", "Jane",
		nil, "1726000000.000100", string(status), nil, nil,
		nil, nil, false, rawVector, time.Now().UTC(),
		nil, nil,
	}
}

type driverValue = driver.Value

func addMessageRow(rows *sqlmock.Rows, values []driverValue) *sqlmock.Rows {
	return rows.AddRow(values...)
}

func TestCreateMessage(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec("INSERT INTO messages").WillReturnResult(sqlmock.NewResult(0, 1))

	msg := &models.Message{
		ID:              "m1",
		Text:            "Can you help with the API docs?",
		ChannelID:       "C1",
		ChannelName:     "support",
		UserID:          "U1",
		UserName:        "Jane",
		SourceTimestamp: "1726000000.000100",
		Status:          models.StatusPending,
		ReceivedAt:      time.Now().UTC(),
	}
	err := s.CreateMessage(context.Background(), msg)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMessage(t *testing.T) {
	s, mock := newTestStore(t)

	rows := addMessageRow(sqlmock.NewRows(messageTestColumns),
		messageRowValues("m1", models.StatusPending, []float64{1, 0, 2}))
	mock.ExpectQuery("SELECT (.+) FROM messages WHERE id").WillReturnRows(rows)

	msg, err := s.GetMessage(context.Background(), "m1")

	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, models.StatusPending, msg.Status)
	assert.Equal(t, []float64{1, 0, 2}, msg.FeatureVector)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMessage_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM messages WHERE id").
		WillReturnRows(sqlmock.NewRows(messageTestColumns))

	_, err := s.GetMessage(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name        string
		current     models.Status
		target      models.Status
		expectWrite bool
		expectErr   error
		check       func(t *testing.T, msg *models.Message)
	}{
		{
			name:        "pending to processing",
			current:     models.StatusPending,
			target:      models.StatusProcessing,
			expectWrite: true,
		},
		{
			name:        "processing to completed sets processedAt",
			current:     models.StatusProcessing,
			target:      models.StatusCompleted,
			expectWrite: true,
			check: func(t *testing.T, msg *models.Message) {
				require.NotNil(t, msg.ProcessedAt)
				assert.Nil(t, msg.SentAt)
			},
		},
		{
			name:        "completed to sent sets sentAt",
			current:     models.StatusCompleted,
			target:      models.StatusSent,
			expectWrite: true,
			check: func(t *testing.T, msg *models.Message) {
				require.NotNil(t, msg.SentAt)
			},
		},
		{
			name:        "pending to sent via auto-response",
			current:     models.StatusPending,
			target:      models.StatusSent,
			expectWrite: true,
			check: func(t *testing.T, msg *models.Message) {
				require.NotNil(t, msg.SentAt)
			},
		},
		{
			name:        "same state is an idempotent no-op",
			current:     models.StatusCompleted,
			target:      models.StatusCompleted,
			expectWrite: false,
		},
		{
			name:        "sent is terminal",
			current:     models.StatusSent,
			target:      models.StatusPending,
			expectWrite: false,
			expectErr:   ErrInvalidTransition,
		},
		{
			name:        "dismissed cannot be resurrected",
			current:     models.StatusDismissed,
			target:      models.StatusProcessing,
			expectWrite: false,
			expectErr:   ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newTestStore(t)

			rows := addMessageRow(sqlmock.NewRows(messageTestColumns),
				messageRowValues("m1", tt.current, nil))
			mock.ExpectQuery("SELECT (.+) FROM messages WHERE id").WillReturnRows(rows)
			if tt.expectWrite {
				mock.ExpectExec("UPDATE messages SET status").WillReturnResult(sqlmock.NewResult(0, 1))
			}

			msg, err := s.Transition(context.Background(), "m1", tt.target)

			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.target, msg.Status)
				if tt.check != nil {
					tt.check(t, msg)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransition_RetryClearsError(t *testing.T) {
	s, mock := newTestStore(t)

	values := messageRowValues("m1", models.StatusFailed, nil)
	values[11] = "backend unreachable" // error column
	rows := addMessageRow(sqlmock.NewRows(messageTestColumns), values)
	mock.ExpectQuery("SELECT (.+) FROM messages WHERE id").WillReturnRows(rows)
	mock.ExpectExec("UPDATE messages SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	msg, err := s.Transition(context.Background(), "m1", models.StatusPending)

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, msg.Status)
	assert.Nil(t, msg.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFail(t *testing.T) {
	s, mock := newTestStore(t)

	rows := addMessageRow(sqlmock.NewRows(messageTestColumns),
		messageRowValues("m1", models.StatusProcessing, nil))
	mock.ExpectQuery("SELECT (.+) FROM messages WHERE id").WillReturnRows(rows)
	// Status and error land in one statement; a failed row is never visible
	// without its error.
	mock.ExpectExec(`UPDATE messages SET status = \?, error = \? WHERE id = \?`).
		WithArgs(string(models.StatusFailed), "generation timed out after 30s", "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg, err := s.Fail(context.Background(), "m1", "generation timed out after 30s")

	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, msg.Status)
	require.NotNil(t, msg.Error)
	assert.Equal(t, "generation timed out after 30s", *msg.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFail_FromTerminalStatus(t *testing.T) {
	s, mock := newTestStore(t)

	rows := addMessageRow(sqlmock.NewRows(messageTestColumns),
		messageRowValues("m1", models.StatusSent, nil))
	mock.ExpectQuery("SELECT (.+) FROM messages WHERE id").WillReturnRows(rows)

	_, err := s.Fail(context.Background(), "m1", "too late")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMessages_ByStatus(t *testing.T) {
	s, mock := newTestStore(t)

	rows := sqlmock.NewRows(messageTestColumns)
	rows = addMessageRow(rows, messageRowValues("m1", models.StatusPending, nil))
	rows = addMessageRow(rows, messageRowValues("m2", models.StatusPending, nil))
	mock.ExpectQuery("SELECT (.+) FROM messages WHERE status").WillReturnRows(rows)

	status := models.StatusPending
	messages, err := s.ListMessages(context.Background(), &status)

	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "m2", messages[1].ID)
}

func TestListTemplates(t *testing.T) {
	s, mock := newTestStore(t)

	values := messageRowValues("tpl1", models.StatusSent, []float64{0.5, 1, 0})
	values[13] = true // is_template column
	rows := addMessageRow(sqlmock.NewRows(messageTestColumns), values)
	mock.ExpectQuery("SELECT (.+) FROM messages").WillReturnRows(rows)

	templates, err := s.ListTemplates(context.Background())

	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.True(t, templates[0].IsTemplate)
	assert.Equal(t, []float64{0.5, 1, 0}, templates[0].FeatureVector)
}

func TestSaveFeatureVector(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec("UPDATE messages SET feature_vector").
		WithArgs(`[1,0,2.5]`, "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SaveFeatureVector(context.Background(), "m1", []float64{1, 0, 2.5})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountMessages(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := s.CountMessages(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestSchemaStatements(t *testing.T) {
	t.Run("mysql uses inline indexes", func(t *testing.T) {
		stmts := schemaStatements("mysql")
		require.Len(t, stmts, 1)
		assert.Contains(t, stmts[0], "ENGINE=InnoDB")
		assert.Contains(t, stmts[0], "INDEX idx_messages_status")
	})

	t.Run("postgres splits indexes into separate statements", func(t *testing.T) {
		stmts := schemaStatements("postgres")
		require.Len(t, stmts, 3)
		assert.NotContains(t, stmts[0], "ENGINE")
		assert.Contains(t, stmts[0], "TIMESTAMPTZ")
		assert.Contains(t, stmts[1], "CREATE INDEX IF NOT EXISTS idx_messages_status")
		assert.Contains(t, stmts[2], "CREATE INDEX IF NOT EXISTS idx_messages_template")
	})
}

func TestCreateMessagesTable(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS messages").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.CreateMessagesTable(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
