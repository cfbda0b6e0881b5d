// Package events publishes session lifecycle notifications to the message
// broker for downstream consumers (transcript summaries, credit accounting).
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/interviewace/apiserver/internal/mq"
)

// Event types carried on the session topic.
const (
	TypeSessionCompleted = "session.completed"
	TypeSessionCancelled = "session.cancelled"
	TypeQuestionAdded    = "session.question_added"
)

// SessionEvent is the payload published for a session lifecycle change.
type SessionEvent struct {
	Type        string    `json:"type"`
	SessionID   int       `json:"sessionId"`
	UserID      int       `json:"userId"`
	SessionType string    `json:"sessionType"`
	Status      string    `json:"status,omitempty"`
	Duration    int       `json:"duration,omitempty"`
	CreditsUsed int       `json:"creditsUsed,omitempty"`
	Questions   int       `json:"questions,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Publisher emits session events. Implementations must not fail the
// request path; delivery is best-effort.
type Publisher interface {
	PublishSessionEvent(ctx context.Context, event SessionEvent)
}

// MQPublisher publishes session events on a broker topic.
type MQPublisher struct {
	mq     *mq.MQ
	topic  string
	logger *slog.Logger
}

// NewMQPublisher constructs a publisher for the given topic.
func NewMQPublisher(broker *mq.MQ, topic string, logger *slog.Logger) *MQPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQPublisher{mq: broker, topic: topic, logger: logger}
}

// PublishSessionEvent marshals and publishes the event. Broker errors are
// logged and swallowed; the originating request must not fail.
func (p *MQPublisher) PublishSessionEvent(ctx context.Context, event SessionEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal session event", "type", event.Type, "err", err)
		return
	}

	attrs := map[string]string{
		"type":      event.Type,
		"sessionId": strconv.Itoa(event.SessionID),
	}
	if _, err := p.mq.Publish(ctx, p.topic, data, attrs); err != nil {
		p.logger.Error("publish session event", "type", event.Type, "session", event.SessionID, "err", err)
	}
}
