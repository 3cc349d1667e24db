// Package worker answers asynchronous digest requests from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
)

// Digester builds a digest for a request.
type Digester interface {
	Digest(ctx context.Context, req domain.DigestRequest) *domain.Digest
}

// DigestWorker subscribes to digest requests and publishes the results.
type DigestWorker struct {
	bus      domain.EventBus
	digester Digester

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewDigestWorker creates a new digest worker.
func NewDigestWorker(bus domain.EventBus, digester Digester) *DigestWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &DigestWorker{
		bus:      bus,
		digester: digester,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to digest requests in every configured scope. No scopes
// means the global scope.
func (w *DigestWorker) Start(cfg domain.WorkerConfig) error {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{domain.GlobalScope}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, scope := range scopes {
		sub, err := w.bus.Subscribe(w.ctx, scope, domain.TopicDigestRequested, w.handleMessage)
		if err != nil {
			slog.Error("failed to start digest worker",
				"scope", scope,
				"error", err,
			)
			continue
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	if len(w.subscriptions) == 0 {
		return fmt.Errorf("digest worker has no subscriptions")
	}

	slog.Info("digest worker started",
		"scopes", scopes,
		"topic", domain.TopicDigestRequested,
	)
	return nil
}

// handleMessage answers a single digest request.
func (w *DigestWorker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var req domain.DigestRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse digest request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if req.UserID == "" && msg.Scope != domain.GlobalScope {
		req.UserID = msg.Scope
	}
	if req.UserID == "" {
		return fmt.Errorf("%w: digest request %s has no user", domain.ErrInvalidInput, msg.ID)
	}
	if req.RequestID == "" {
		req.RequestID = msg.ID
	}

	digest := w.digester.Digest(ctx, req)

	payload, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("failed to marshal digest: %w", err)
	}

	if err := w.bus.Publish(ctx, req.UserID, domain.TopicDigestReady, payload); err != nil {
		slog.Error("failed to publish digest",
			"request_id", req.RequestID,
			"user_id", req.UserID,
			"error", err,
		)
	}

	if err := w.bus.Reply(ctx, msg, payload); err != nil {
		slog.Error("failed to reply with digest",
			"request_id", req.RequestID,
			"error", err,
		)
	}

	if digest.Anomalies != nil && digest.Anomalies.Count > 0 {
		anomalies, err := json.Marshal(digest.Anomalies)
		if err == nil {
			err = w.bus.Publish(ctx, req.UserID, domain.TopicAnomalyDetected, anomalies)
		}
		if err != nil {
			slog.Error("failed to publish anomalies",
				"request_id", req.RequestID,
				"error", err,
			)
		}
	}

	slog.Info("digest processed",
		"request_id", req.RequestID,
		"user_id", req.UserID,
		"failed", digest.Error != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Stop unsubscribes from every scope.
func (w *DigestWorker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("digest worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *DigestWorker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
