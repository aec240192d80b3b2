package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"replydesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrBackendUnreachable means the generation backend did not answer the probe
	ErrBackendUnreachable = errors.New("generation backend unreachable")
	// ErrNoModelConfigured means no model identifier is configured
	ErrNoModelConfigured = errors.New("no generation model configured")
	// ErrGenerationTimeout means the backend did not finish within the bound
	ErrGenerationTimeout = errors.New("generation timed out")
	// ErrEmptyResponse means the backend finished without producing any text
	ErrEmptyResponse = errors.New("backend returned an empty response")
)

const probeTimeout = 5 * time.Second

// MessageStore is the slice of the event store the orchestrator needs.
// All status changes go through it; the orchestrator never mutates directly.
type MessageStore interface {
	Transition(ctx context.Context, id string, to models.Status) (*models.Message, error)
	Fail(ctx context.Context, id string, cause string) (*models.Message, error)
	SetGeneratedReply(ctx context.Context, id, reply string) error
}

// Generator drives the streaming backend to produce a reply for a message
type Generator struct {
	client       *Client
	store        MessageStore
	systemPrompt string
	timeout      time.Duration
	logger       zerolog.Logger
}

// New creates a generator. timeout bounds the total wait for one generation.
func New(client *Client, store MessageStore, systemPrompt string, timeout time.Duration, logger zerolog.Logger) *Generator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{
		client:       client,
		store:        store,
		systemPrompt: systemPrompt,
		timeout:      timeout,
		logger:       logger,
	}
}

// BuildPrompt assembles the chat messages sent to the backend. The shape is
// fixed: the configured system prompt, then one user message carrying the
// sender, channel, receipt time, and the inbound text.
func BuildPrompt(systemPrompt string, msg *models.Message) []openai.ChatCompletionMessage {
	user := fmt.Sprintf("From: %s (channel #%s)\nReceived: %s\n\nMessage:\n%s",
		msg.UserName, msg.ChannelName, msg.ReceivedAt.UTC().Format(time.RFC3339), msg.Text)

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}

// Generate produces a reply for the message and persists it. On success the
// message moves to completed with the filtered text as its generated reply;
// every failure path moves it to failed with a readable error and returns a
// typed error. Failures are never retried here — retry is an explicit caller
// action that resets the message to pending.
func (g *Generator) Generate(ctx context.Context, msg *models.Message) (string, error) {
	if _, err := g.store.Transition(ctx, msg.ID, models.StatusProcessing); err != nil {
		return "", fmt.Errorf("failed to start processing message %s: %w", msg.ID, err)
	}

	probeCtx, cancelProbe := context.WithTimeout(ctx, probeTimeout)
	defer cancelProbe()
	if err := g.client.Reachable(probeCtx); err != nil {
		g.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Generation backend unreachable")
		return "", g.fail(msg.ID, ErrBackendUnreachable,
			fmt.Sprintf("generation backend unreachable: %v", err))
	}

	if g.client.Model() == "" {
		return "", g.fail(msg.ID, ErrNoModelConfigured, "no model configured; set MODEL")
	}

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	stream, err := g.client.StreamChat(genCtx, BuildPrompt(g.systemPrompt, msg))
	if err != nil {
		if cause, aborted := g.failFromContext(genCtx, msg.ID); aborted {
			return "", cause
		}
		return "", g.fail(msg.ID, err, fmt.Sprintf("generation request failed: %v", err))
	}
	defer stream.Close()

	// Consume incrementally so a timeout aborts mid-stream instead of
	// waiting for full completion. Output arriving after the deadline is
	// discarded along with the stream.
	filter := NewThinkFilter()
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if cause, aborted := g.failFromContext(genCtx, msg.ID); aborted {
				return "", cause
			}
			return "", g.fail(msg.ID, err, fmt.Sprintf("stream read failed: %v", err))
		}
		if len(chunk.Choices) > 0 {
			filter.Write(chunk.Choices[0].Delta.Content)
		}
	}

	reply := strings.TrimSpace(filter.String())
	if reply == "" {
		return "", g.fail(msg.ID, ErrEmptyResponse, "backend returned an empty response")
	}

	if err := g.store.SetGeneratedReply(ctx, msg.ID, reply); err != nil {
		return "", g.fail(msg.ID, err, fmt.Sprintf("failed to persist reply: %v", err))
	}
	if _, err := g.store.Transition(ctx, msg.ID, models.StatusCompleted); err != nil {
		return "", fmt.Errorf("failed to complete message %s: %w", msg.ID, err)
	}

	g.logger.Info().Str("message_id", msg.ID).Int("reply_len", len(reply)).Msg("Reply generated")
	return reply, nil
}

// failFromContext classifies an aborted generation: hitting the generation
// deadline is a timeout, a cancelled caller (e.g. client disconnect) is not
// and propagates its own cause.
func (g *Generator) failFromContext(genCtx context.Context, id string) (error, bool) {
	switch {
	case errors.Is(genCtx.Err(), context.DeadlineExceeded):
		return g.fail(id, ErrGenerationTimeout,
			fmt.Sprintf("generation timed out after %s", g.timeout)), true
	case genCtx.Err() != nil:
		return g.fail(id, genCtx.Err(),
			fmt.Sprintf("generation cancelled: %v", genCtx.Err())), true
	}
	return nil, false
}

// fail records the failure on the message and returns the typed cause. A
// fresh context is used so the message still leaves processing when the
// caller's context has already expired.
func (g *Generator) fail(id string, cause error, detail string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := g.store.Fail(ctx, id, detail); err != nil {
		g.logger.Error().Err(err).Str("message_id", id).Msg("Failed to record generation failure")
	}
	return cause
}
