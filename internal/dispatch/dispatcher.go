// Package dispatch routes newly admitted messages to either an automatic
// template reply or the generation pipeline. A bounded typed channel replaces
// ambient broadcast notifications: ingress enqueues, a single worker decides.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"replydesk/internal/models"
	"replydesk/internal/similarity"

	"github.com/rs/zerolog"
)

// Event signals that a message was admitted and awaits a routing decision
type Event struct {
	MessageID string
}

// MessageStore is the slice of the event store the dispatcher needs
type MessageStore interface {
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	ListTemplates(ctx context.Context) ([]models.Message, error)
	Transition(ctx context.Context, id string, to models.Status) (*models.Message, error)
	Fail(ctx context.Context, id string, cause string) (*models.Message, error)
	SetNote(ctx context.Context, id, note string) error
	SaveFeatureVector(ctx context.Context, id string, vector []float64) error
}

// ReplyGenerator produces a candidate reply for a message
type ReplyGenerator interface {
	Generate(ctx context.Context, msg *models.Message) (string, error)
}

// ReplySender delivers finalized reply text out through the relay
type ReplySender interface {
	Send(ctx context.Context, msg *models.Message, replyText string) error
	Configured() bool
}

// Escalator notifies an operator about a failed message
type Escalator interface {
	Configured() bool
	SendFailureEscalation(msg *models.Message, cause string) error
}

const processTimeout = 60 * time.Second

// Dispatcher consumes admission events and routes each message exactly once:
// either it is auto-answered from a matching template, or it is handed to the
// generator. The two outcomes are mutually exclusive per message, enforced by
// the single worker making the decision.
type Dispatcher struct {
	events       chan Event
	store        MessageStore
	engine       *similarity.Engine
	generator    ReplyGenerator
	relay        ReplySender
	escalator    Escalator
	autoGenerate bool
	logger       zerolog.Logger

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a dispatcher with a bounded event queue of the given size
func New(store MessageStore, engine *similarity.Engine, generator ReplyGenerator,
	relay ReplySender, escalator Escalator, autoGenerate bool,
	queueSize int, logger zerolog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		events:       make(chan Event, queueSize),
		store:        store,
		engine:       engine,
		generator:    generator,
		relay:        relay,
		escalator:    escalator,
		autoGenerate: autoGenerate,
		logger:       logger,
		quit:         make(chan struct{}),
	}
}

// Start launches the worker goroutine
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.quit:
				return
			case event := <-d.events:
				d.process(event)
			}
		}
	}()
}

// Stop shuts the worker down and waits for the in-flight message to finish
func (d *Dispatcher) Stop() {
	close(d.quit)
	d.wg.Wait()
}

// Enqueue hands an event to the worker. It never blocks ingress: when the
// queue is full the event is dropped with a warning and false is returned;
// the message stays pending and can be processed manually.
func (d *Dispatcher) Enqueue(event Event) bool {
	select {
	case d.events <- event:
		return true
	default:
		d.logger.Warn().Str("message_id", event.MessageID).Msg("Dispatch queue full, message left pending")
		return false
	}
}

func (d *Dispatcher) process(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	msg, err := d.store.GetMessage(ctx, event.MessageID)
	if err != nil {
		d.logger.Error().Err(err).Str("message_id", event.MessageID).Msg("Failed to load message for dispatch")
		return
	}
	if msg.Status != models.StatusPending {
		// Already routed, e.g. a duplicate event or an operator action raced us
		return
	}

	// Cache the feature vector up front; text is immutable so recomputation
	// on a duplicate event yields the identical value.
	if msg.FeatureVector == nil {
		vector := d.engine.Vectorize(msg.Text)
		if err := d.store.SaveFeatureVector(ctx, msg.ID, vector); err != nil {
			d.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to cache feature vector")
		}
		msg.FeatureVector = vector
	}

	templates, err := d.store.ListTemplates(ctx)
	if err != nil {
		d.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to load templates")
		templates = nil
	}

	if result, ok := d.engine.AutoResponseCandidate(*msg, templates); ok && d.relay.Configured() {
		d.autoRespond(ctx, msg, result)
		return
	}

	if !d.autoGenerate {
		return
	}
	if _, err := d.generator.Generate(ctx, msg); err != nil {
		d.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Generation failed")
		d.escalate(msg, err)
	}
}

// autoRespond answers the message with the matched template's stored reply,
// bypassing generation entirely.
func (d *Dispatcher) autoRespond(ctx context.Context, msg *models.Message, result *similarity.Result) {
	reply := result.Message.ReplyText()

	if err := d.relay.Send(ctx, msg, reply); err != nil {
		d.logger.Error().Err(err).
			Str("message_id", msg.ID).
			Str("template_id", result.Message.ID).
			Msg("Auto-response delivery failed")
		if _, failErr := d.store.Fail(ctx, msg.ID, fmt.Sprintf("auto-response delivery failed: %v", err)); failErr != nil {
			d.logger.Error().Err(failErr).Str("message_id", msg.ID).Msg("Failed to record delivery failure")
		}
		return
	}

	if _, err := d.store.Transition(ctx, msg.ID, models.StatusSent); err != nil {
		d.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to mark auto-response as sent")
		return
	}

	note := fmt.Sprintf("Auto-response: matched template %s at %.1f%% confidence",
		result.Message.ID, result.Confidence)
	if err := d.store.SetNote(ctx, msg.ID, note); err != nil {
		d.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to attach auto-response note")
	}

	d.logger.Info().
		Str("message_id", msg.ID).
		Str("template_id", result.Message.ID).
		Float64("confidence", result.Confidence).
		Msg("Message auto-answered from template")
}

func (d *Dispatcher) escalate(msg *models.Message, cause error) {
	if d.escalator == nil || !d.escalator.Configured() {
		return
	}
	if err := d.escalator.SendFailureEscalation(msg, cause.Error()); err != nil {
		d.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to send escalation email")
	}
}
