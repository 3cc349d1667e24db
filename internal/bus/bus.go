// Package bus provides the event buses that carry digest requests.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/finsight/internal/domain"
)

// ErrScopeRequired is returned for calls with an empty scope.
var ErrScopeRequired = fmt.Errorf("%w: bus scope is required", domain.ErrInvalidInput)

// ErrClosed is returned by a closed bus.
var ErrClosed = fmt.Errorf("bus is closed")

// defaultRequestTimeout bounds a Request whose context has no deadline.
const defaultRequestTimeout = 30 * time.Second

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

func newMessage(scope, topic string, payload []byte) *domain.Message {
	return &domain.Message{
		ID:        uuid.New().String(),
		Scope:     scope,
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
}

// encodeEnvelope wraps a payload in a JSON message envelope.
func encodeEnvelope(scope, topic string, payload []byte) ([]byte, error) {
	data, err := json.Marshal(newMessage(scope, topic, payload))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// decodeEnvelope reads a JSON message envelope.
func decodeEnvelope(data []byte) (*domain.Message, error) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.Metadata == nil {
		msg.Metadata = make(map[string]string)
	}
	return &msg, nil
}
