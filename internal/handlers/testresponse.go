package handlers

import (
	"net/http"
	"time"

	"replydesk/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const testReplyText = "This is a test response from replydesk. If you can read this, the outbound pipeline works."

// TestResponseHandler pushes a canned reply through the relay
// @Summary Send a synthetic test reply through the relay
// @Accept json
// @Produce json
// @Param event body models.InboundChannel false "Destination channel, defaults to 'test'"
// @Success 200 {object} models.TestResponseResult
// @Failure 500 {object} models.TestResponseResult
// @Router /test-response [post]
func TestResponseHandler(relay ReplySender, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		channel := models.InboundChannel{ID: "test", Name: "test"}
		// Destination override is optional; a missing or malformed body keeps
		// the default test channel.
		_ = c.Bind(&channel)
		if channel.ID == "" {
			channel.ID = "test"
		}

		msg := &models.Message{
			ID:          uuid.NewString(),
			Text:        "Synthetic self-test message",
			ChannelID:   channel.ID,
			ChannelName: channel.Name,
			UserID:      "replydesk",
			UserName:    "ReplyDesk",
			ReceivedAt:  time.Now().UTC(),
		}

		if err := relay.Send(c.Request().Context(), msg, testReplyText); err != nil {
			logger.Error().Err(err).Msg("Test response delivery failed")
			return c.JSON(http.StatusInternalServerError, models.TestResponseResult{
				TestSent: false,
				Message:  err.Error(),
			})
		}

		return c.JSON(http.StatusOK, models.TestResponseResult{
			TestSent: true,
			Message:  "test response delivered to channel " + channel.ID,
		})
	}
}
