package handlers

import (
	"context"
	"net/http"
	"time"

	"replydesk/internal/dispatch"
	"replydesk/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// MessageStore is the persistence surface the HTTP handlers need
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	ListMessages(ctx context.Context, status *models.Status) ([]models.Message, error)
	ListTemplates(ctx context.Context) ([]models.Message, error)
	Transition(ctx context.Context, id string, to models.Status) (*models.Message, error)
	SetEditedReply(ctx context.Context, id, reply string) error
	SetTemplate(ctx context.Context, id string, isTemplate bool) error
	SaveFeatureVector(ctx context.Context, id string, vector []float64) error
	CountMessages(ctx context.Context) (int, error)
}

// Enqueuer hands admitted messages to the processing worker
type Enqueuer interface {
	Enqueue(event dispatch.Event) bool
}

// WebhookHandler ingests chat-platform events
// @Summary Ingest a chat-platform webhook event
// @Description Validates the inbound event, persists a pending message and queues it for processing
// @Tags webhook
// @Accept json
// @Produce json
// @Param event body models.InboundEvent true "Inbound event"
// @Success 200 {object} models.WebhookAck
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /webhook [post]
func WebhookHandler(st MessageStore, queue Enqueuer, counters *Counters, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var event models.InboundEvent
		if err := c.Bind(&event); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "invalid payload: " + err.Error(),
			})
		}

		// Reject before any state is created so malformed events stay inert
		if err := event.Validate(); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		}

		msg := &models.Message{
			ID:              uuid.NewString(),
			Text:            event.Text,
			ChannelID:       event.Channel.ID,
			ChannelName:     event.Channel.Name,
			UserID:          event.User.ID,
			UserName:        event.DisplayName(),
			ThreadID:        event.ThreadID,
			SourceTimestamp: event.TS,
			Status:          models.StatusPending,
			ReceivedAt:      time.Now().UTC(),
		}

		if err := st.CreateMessage(c.Request().Context(), msg); err != nil {
			logger.Error().Err(err).Msg("Failed to persist inbound message")
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: "failed to store message",
			})
		}

		counters.MessageReceived()

		// Queue for processing after the write is durable; the response does
		// not wait for generation.
		if !queue.Enqueue(dispatch.Event{MessageID: msg.ID}) {
			logger.Warn().Str("message_id", msg.ID).Msg("Processing queue full, message left pending")
		}

		logger.Info().
			Str("message_id", msg.ID).
			Str("channel", msg.ChannelID).
			Str("user", msg.UserID).
			Msg("Webhook event admitted")

		return c.JSON(http.StatusOK, models.WebhookAck{
			Status:    "received",
			MessageID: msg.ID,
		})
	}
}
