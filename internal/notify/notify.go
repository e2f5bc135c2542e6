// Package notify delivers best-effort outbound messages after state changes.
// Delivery never affects the outcome of the operation that triggered it.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 5 * time.Second

// Event names what happened.
type Event string

const (
	EventProductionRecorded Event = "production_recorded"
	EventTicketReported     Event = "ticket_reported"
	EventTicketAssigned     Event = "ticket_assigned"
	EventTicketCompleted    Event = "ticket_completed"
)

// Message is one plain-text notification.
type Message struct {
	ID    string    `json:"id"`
	Event Event     `json:"event"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Sink delivers messages somewhere outside the process.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier sends messages to a sink with a fixed time budget.
type Notifier struct {
	sink    Sink
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewNotifier creates a notifier. A nil sink disables delivery.
func NewNotifier(sink Sink, timeout time.Duration, log logrus.FieldLogger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{
		sink:    sink,
		timeout: timeout,
		log:     log.WithField("component", "notify"),
	}
}

// Notify delivers text and returns once the sink answers or the timeout
// passes, whichever is first. Request cancellation does not cut the attempt
// short. Failures are logged and dropped.
func (n *Notifier) Notify(ctx context.Context, event Event, text string) {
	if n == nil || n.sink == nil {
		return
	}
	msg := Message{
		ID:    uuid.NewString(),
		Event: event,
		Text:  text,
		At:    time.Now(),
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- n.sink.Send(sendCtx, msg)
	}()

	var err error
	select {
	case err = <-done:
	case <-sendCtx.Done():
		err = sendCtx.Err()
	}
	if err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"event":      event,
			"message_id": msg.ID,
		}).Warn("Notification delivery failed")
	}
}

// LogSink writes messages to the log. It is the fallback when no outbound
// channel is configured.
type LogSink struct {
	Log logrus.FieldLogger
}

func (s LogSink) Send(ctx context.Context, msg Message) error {
	s.Log.WithFields(logrus.Fields{
		"event":      msg.Event,
		"message_id": msg.ID,
	}).Info(msg.Text)
	return nil
}

// MultiSink fans a message out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
