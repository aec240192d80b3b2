package handlers

import (
	"context"
	"errors"
	"net/http"

	"replydesk/internal/dispatch"
	"replydesk/internal/generator"
	"replydesk/internal/models"
	"replydesk/internal/similarity"
	"replydesk/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ReplySender delivers a reply to the outbound relay
type ReplySender interface {
	Send(ctx context.Context, msg *models.Message, replyText string) error
	Configured() bool
}

// ReplyGenerator produces a candidate reply for a message
type ReplyGenerator interface {
	Generate(ctx context.Context, msg *models.Message) (string, error)
}

// storeError maps store failures to JSON error responses
func storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "message not found"})
	case errors.Is(err, store.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	}
}

// ListMessagesHandler lists messages, optionally filtered by status
// @Summary List messages
// @Produce json
// @Param status query string false "Status filter" Enums(pending, processing, completed, sent, dismissed, failed)
// @Success 200 {array} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Router /api/messages [get]
func ListMessagesHandler(st MessageStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		var filter *models.Status
		if raw := c.QueryParam("status"); raw != "" {
			status := models.Status(raw)
			if !status.IsValid() {
				return c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Error: "unknown status: " + raw,
				})
			}
			filter = &status
		}

		messages, err := st.ListMessages(c.Request().Context(), filter)
		if err != nil {
			return storeError(c, err)
		}

		return c.JSON(http.StatusOK, messages)
	}
}

// GetMessageHandler returns one message with its scored template matches
// @Summary Get a message with template matches
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} models.MessageDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /api/messages/{id} [get]
func GetMessageHandler(st MessageStore, engine *similarity.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		msg, err := st.GetMessage(ctx, c.Param("id"))
		if err != nil {
			return storeError(c, err)
		}

		detail := models.MessageDetail{Message: *msg, Matches: []models.MatchResult{}}

		templates, err := st.ListTemplates(ctx)
		if err != nil {
			return storeError(c, err)
		}

		target := *msg
		if target.FeatureVector == nil {
			target.FeatureVector = engine.Vectorize(target.Text)
		}
		for _, result := range engine.Score(target, templates) {
			detail.Matches = append(detail.Matches, models.MatchResult{
				MessageID:  result.Message.ID,
				Text:       result.Message.Text,
				Reply:      result.Message.ReplyText(),
				Confidence: result.Confidence,
				Tier:       string(result.Tier),
			})
		}

		return c.JSON(http.StatusOK, detail)
	}
}

// SendMessageHandler relays a message's reply and marks it sent
// @Summary Send a message's reply through the relay
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/messages/{id}/send [post]
func SendMessageHandler(st MessageStore, relay ReplySender, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		msg, err := st.GetMessage(ctx, c.Param("id"))
		if err != nil {
			return storeError(c, err)
		}

		if !msg.HasReply() {
			return c.JSON(http.StatusConflict, models.ErrorResponse{
				Error: "message has no reply to send",
			})
		}
		if !models.CanTransition(msg.Status, models.StatusSent) {
			return c.JSON(http.StatusConflict, models.ErrorResponse{
				Error: "message in status " + string(msg.Status) + " cannot be sent",
			})
		}

		// The status only moves once the relay has confirmed delivery
		if err := relay.Send(ctx, msg, msg.ReplyText()); err != nil {
			logger.Error().Err(err).Str("message_id", msg.ID).Msg("Reply delivery failed")
			return c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: err.Error()})
		}

		updated, err := st.Transition(ctx, msg.ID, models.StatusSent)
		if err != nil {
			return storeError(c, err)
		}

		logger.Info().Str("message_id", msg.ID).Msg("Reply sent")
		return c.JSON(http.StatusOK, updated)
	}
}

// RetryMessageHandler returns a failed message to pending and re-queues it
// @Summary Retry a failed message
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/messages/{id}/retry [post]
func RetryMessageHandler(st MessageStore, queue Enqueuer, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		updated, err := st.Transition(c.Request().Context(), c.Param("id"), models.StatusPending)
		if err != nil {
			return storeError(c, err)
		}

		if !queue.Enqueue(dispatch.Event{MessageID: updated.ID}) {
			logger.Warn().Str("message_id", updated.ID).Msg("Processing queue full, retry left pending")
		}

		return c.JSON(http.StatusOK, updated)
	}
}

// DismissMessageHandler declines a message
// @Summary Dismiss a message
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/messages/{id}/dismiss [post]
func DismissMessageHandler(st MessageStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		updated, err := st.Transition(c.Request().Context(), c.Param("id"), models.StatusDismissed)
		if err != nil {
			return storeError(c, err)
		}

		return c.JSON(http.StatusOK, updated)
	}
}

// EditReplyHandler sets or clears the operator override for a reply
// @Summary Edit a message's reply
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param request body models.EditReplyRequest true "Reply override"
// @Success 200 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/messages/{id}/reply [put]
func EditReplyHandler(st MessageStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req models.EditReplyRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "invalid payload: " + err.Error(),
			})
		}

		id := c.Param("id")
		if err := st.SetEditedReply(ctx, id, req.Reply); err != nil {
			return storeError(c, err)
		}

		updated, err := st.GetMessage(ctx, id)
		if err != nil {
			return storeError(c, err)
		}

		return c.JSON(http.StatusOK, updated)
	}
}

// TemplateHandler toggles whether a message's exchange is reusable for matching
// @Summary Mark or unmark a message as a template
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param request body models.TemplateRequest true "Template toggle"
// @Success 200 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/messages/{id}/template [post]
func TemplateHandler(st MessageStore, engine *similarity.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req models.TemplateRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "invalid payload: " + err.Error(),
			})
		}

		id := c.Param("id")
		msg, err := st.GetMessage(ctx, id)
		if err != nil {
			return storeError(c, err)
		}

		if req.IsTemplate {
			if !msg.HasReply() {
				return c.JSON(http.StatusConflict, models.ErrorResponse{
					Error: "a template needs a reply",
				})
			}
			// Templates are matched by vector, so one must exist before the
			// message can participate in scoring.
			if msg.FeatureVector == nil {
				if err := st.SaveFeatureVector(ctx, id, engine.Vectorize(msg.Text)); err != nil {
					return storeError(c, err)
				}
			}
		}

		if err := st.SetTemplate(ctx, id, req.IsTemplate); err != nil {
			return storeError(c, err)
		}

		updated, err := st.GetMessage(ctx, id)
		if err != nil {
			return storeError(c, err)
		}

		return c.JSON(http.StatusOK, updated)
	}
}

// GenerateMessageHandler triggers reply generation for a pending message
// @Summary Generate a candidate reply now
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Failure 504 {object} models.ErrorResponse
// @Router /api/messages/{id}/generate [post]
func GenerateMessageHandler(st MessageStore, gen ReplyGenerator, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		id := c.Param("id")
		msg, err := st.GetMessage(ctx, id)
		if err != nil {
			return storeError(c, err)
		}

		if msg.Status != models.StatusPending {
			return c.JSON(http.StatusConflict, models.ErrorResponse{
				Error: "message in status " + string(msg.Status) + " cannot be generated",
			})
		}

		if _, err := gen.Generate(ctx, msg); err != nil {
			logger.Error().Err(err).Str("message_id", id).Msg("Manual generation failed")
			switch {
			case errors.Is(err, generator.ErrBackendUnreachable):
				return c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: err.Error()})
			case errors.Is(err, generator.ErrGenerationTimeout):
				return c.JSON(http.StatusGatewayTimeout, models.ErrorResponse{Error: err.Error()})
			default:
				return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
			}
		}

		updated, err := st.GetMessage(ctx, id)
		if err != nil {
			return storeError(c, err)
		}

		return c.JSON(http.StatusOK, updated)
	}
}
