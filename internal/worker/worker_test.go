package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/finsight/internal/bus"
	"github.com/opensource-finance/finsight/internal/domain"
)

type fakeDigester struct {
	mu        sync.Mutex
	requests  []domain.DigestRequest
	anomalies int
}

func (f *fakeDigester) Digest(ctx context.Context, req domain.DigestRequest) *domain.Digest {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	return &domain.Digest{
		RequestID: req.RequestID,
		UserID:    req.UserID,
		Insights:  &domain.InsightReport{},
		Anomalies: &domain.AnomalyReport{Count: f.anomalies, Anomalies: make([]domain.Anomaly, f.anomalies)},
	}
}

func (f *fakeDigester) seen() []domain.DigestRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DigestRequest(nil), f.requests...)
}

func waitFor(t *testing.T, ch <-chan *domain.Message) *domain.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestDigestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	ctx := context.Background()

	t.Run("StartAndStop", func(t *testing.T) {
		w := NewDigestWorker(eventBus, &fakeDigester{})

		if err := w.Start(domain.WorkerConfig{}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := w.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}
		if stats.Topics[0] != domain.TopicDigestRequested {
			t.Errorf("unexpected topic %s", stats.Topics[0])
		}

		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
		if n := w.GetStats().SubscriptionCount; n != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", n)
		}
	})

	t.Run("PublishesDigestInUserScope", func(t *testing.T) {
		digester := &fakeDigester{}
		w := NewDigestWorker(eventBus, digester)
		if err := w.Start(domain.WorkerConfig{}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		ready := make(chan *domain.Message, 1)
		eventBus.Subscribe(ctx, "user-1", domain.TopicDigestReady, func(ctx context.Context, msg *domain.Message) error {
			ready <- msg
			return nil
		})

		payload, _ := json.Marshal(domain.DigestRequest{RequestID: "req-1", UserID: "user-1", PeriodDays: 30})
		if err := eventBus.Publish(ctx, domain.GlobalScope, domain.TopicDigestRequested, payload); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		msg := waitFor(t, ready)
		var digest domain.Digest
		if err := json.Unmarshal(msg.Payload, &digest); err != nil {
			t.Fatalf("failed to parse digest: %v", err)
		}
		if digest.RequestID != "req-1" || digest.UserID != "user-1" {
			t.Errorf("unexpected digest %+v", digest)
		}

		reqs := digester.seen()
		if len(reqs) != 1 || reqs[0].PeriodDays != 30 {
			t.Errorf("unexpected requests %+v", reqs)
		}
	})

	t.Run("UserScopeFillsMissingUser", func(t *testing.T) {
		digester := &fakeDigester{}
		w := NewDigestWorker(eventBus, digester)
		if err := w.Start(domain.WorkerConfig{Scopes: []string{"user-a", "user-b"}}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		if n := w.GetStats().SubscriptionCount; n != 2 {
			t.Errorf("expected 2 subscriptions for 2 scopes, got %d", n)
		}

		ready := make(chan *domain.Message, 1)
		eventBus.Subscribe(ctx, "user-b", domain.TopicDigestReady, func(ctx context.Context, msg *domain.Message) error {
			ready <- msg
			return nil
		})

		eventBus.Publish(ctx, "user-b", domain.TopicDigestRequested, []byte(`{}`))
		msg := waitFor(t, ready)

		var digest domain.Digest
		json.Unmarshal(msg.Payload, &digest)
		if digest.UserID != "user-b" {
			t.Errorf("expected user-b, got %s", digest.UserID)
		}
		if digest.RequestID == "" {
			t.Error("expected request id to default to the message id")
		}
	})

	t.Run("RequestReply", func(t *testing.T) {
		w := NewDigestWorker(eventBus, &fakeDigester{})
		if err := w.Start(domain.WorkerConfig{}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		reqCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		payload, _ := json.Marshal(domain.DigestRequest{RequestID: "req-2", UserID: "user-2"})
		reply, err := eventBus.Request(reqCtx, domain.GlobalScope, domain.TopicDigestRequested, payload)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}

		var digest domain.Digest
		if err := json.Unmarshal(reply, &digest); err != nil {
			t.Fatalf("failed to parse reply: %v", err)
		}
		if digest.RequestID != "req-2" {
			t.Errorf("expected req-2, got %s", digest.RequestID)
		}
	})

	t.Run("AnomaliesPublished", func(t *testing.T) {
		w := NewDigestWorker(eventBus, &fakeDigester{anomalies: 2})
		if err := w.Start(domain.WorkerConfig{}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		detected := make(chan *domain.Message, 1)
		eventBus.Subscribe(ctx, "user-3", domain.TopicAnomalyDetected, func(ctx context.Context, msg *domain.Message) error {
			detected <- msg
			return nil
		})

		payload, _ := json.Marshal(domain.DigestRequest{UserID: "user-3"})
		eventBus.Publish(ctx, domain.GlobalScope, domain.TopicDigestRequested, payload)

		msg := waitFor(t, detected)
		var report domain.AnomalyReport
		if err := json.Unmarshal(msg.Payload, &report); err != nil {
			t.Fatalf("failed to parse anomalies: %v", err)
		}
		if report.Count != 2 {
			t.Errorf("expected 2 anomalies, got %d", report.Count)
		}
	})

	t.Run("RejectsRequestWithoutUser", func(t *testing.T) {
		digester := &fakeDigester{}
		w := NewDigestWorker(eventBus, digester)

		msg := &domain.Message{ID: "m-1", Scope: domain.GlobalScope, Payload: []byte(`{}`)}
		if err := w.handleMessage(ctx, msg); err == nil {
			t.Error("expected error for request without user")
		}
		if len(digester.seen()) != 0 {
			t.Error("digester should not run without a user")
		}

		msg.Payload = []byte("not json")
		if err := w.handleMessage(ctx, msg); err == nil {
			t.Error("expected error for invalid payload")
		}
	})
}

func TestDigestWorkerStartFailsOnClosedBus(t *testing.T) {
	eventBus := bus.NewChannelBus(10)
	eventBus.Close()

	w := NewDigestWorker(eventBus, &fakeDigester{})
	if err := w.Start(domain.WorkerConfig{}); err == nil {
		t.Error("expected error when no subscription could be made")
	}
}
