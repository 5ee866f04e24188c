package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rpsarena/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MessagePublisher sends raw bytes to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps every forwarded event
type EventEnvelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventForwarder copies committed domain events onto NATS subjects
type NATSEventForwarder struct {
	publisher MessagePublisher
	now       func() time.Time
}

// NewNATSEventForwarder creates a forwarder that publishes through publisher
func NewNATSEventForwarder(publisher MessagePublisher) *NATSEventForwarder {
	return &NATSEventForwarder{
		publisher: publisher,
		now:       time.Now,
	}
}

// SubjectFor maps an event type to its subject
func SubjectFor(eventType events.EventType) string {
	return eventSubjectPrefix + string(eventType)
}

// Register subscribes the forwarder to every event type on bus
func (f *NATSEventForwarder) Register(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := f.Forward(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to forward event to NATS")
		}
	})
}

// Forward publishes one event as an envelope
func (f *NATSEventForwarder) Forward(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type()),
		Timestamp:     f.now().UTC(),
		SourceService: "rpsarena",
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := SubjectFor(event.Type())
	if err := f.publisher.Publish(ctx, subject, data); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Forwarded event to NATS")
	return nil
}
