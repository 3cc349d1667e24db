package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
// Topics are namespaced by scope (a user id or "_global").
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, scope string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, scope string, topic string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a response (request-reply pattern).
	Request(ctx context.Context, scope string, topic string, payload []byte) ([]byte, error)

	// Reply answers a message received through Request.
	// It is a no-op for messages that carry no reply address.
	Reply(ctx context.Context, msg *Message, payload []byte) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// MetadataReply is the message metadata key holding the reply address.
const MetadataReply = "reply"

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Scope     string            `json:"scope"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// ReplyTo returns the reply address of the message, if any.
func (m *Message) ReplyTo() string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[MetadataReply]
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// GlobalScope is the scope used by workers that serve every user.
const GlobalScope = "_global"

// Topic names for the digest pipeline.
const (
	TopicDigestRequested = "finsight.digest.requested"
	TopicDigestReady     = "finsight.digest.ready"
	TopicAnomalyDetected = "finsight.anomaly.detected"
)

// DigestRequest asks the digest worker to analyse a user's recent activity.
type DigestRequest struct {
	RequestID  string `json:"requestId"`
	UserID     string `json:"userId"`
	PeriodDays int    `json:"periodDays"`
}

// Digest is the worker's answer to a DigestRequest.
type Digest struct {
	RequestID string         `json:"requestId"`
	UserID    string         `json:"userId"`
	Insights  *InsightReport `json:"insights,omitempty"`
	Anomalies *AnomalyReport `json:"anomalies,omitempty"`
	Error     string         `json:"error,omitempty"`
}
