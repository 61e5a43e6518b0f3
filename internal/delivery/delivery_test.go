package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"audiototext-backend/internal/config"
	"audiototext-backend/internal/job"
)

type mockTransport struct {
	SendFunc func(ctx context.Context, to, subject, body string) error
	calls    []time.Time
}

func (m *mockTransport) Send(ctx context.Context, to, subject, body string) error {
	m.calls = append(m.calls, time.Now())
	return m.SendFunc(ctx, to, subject, body)
}

func deliveringJob(t *testing.T, s *job.Store, transcript string) job.Job {
	t.Helper()
	id := s.Create(job.Job{Email: "user@example.com", Filename: "talk.mp3"})
	s.TryClaim(id, job.StateReceived, job.StateTranscribing)
	s.TryClaim(id, job.StateTranscribing, job.StateDelivering, func(j *job.Job) {
		j.Transcript = transcript
	})
	j, err := s.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return j
}

// TestDeliverSuccess sends once and completes the job.
func TestDeliverSuccess(t *testing.T) {
	store := job.NewStore()
	j := deliveringJob(t, store, "the transcript text")

	var gotTo, gotSubject, gotBody string
	transport := &mockTransport{SendFunc: func(ctx context.Context, to, subject, body string) error {
		gotTo, gotSubject, gotBody = to, subject, body
		return nil
	}}

	svc := NewService(store, transport, config.DeliveryConfig{MaxAttempts: 3, BackoffBase: time.Millisecond})
	svc.Deliver(context.Background(), j)

	if len(transport.calls) != 1 {
		t.Fatalf("send calls = %d, want 1", len(transport.calls))
	}
	if gotTo != "user@example.com" {
		t.Fatalf("to = %s", gotTo)
	}
	if !strings.Contains(gotSubject, j.ID) {
		t.Fatalf("subject %q should carry job id", gotSubject)
	}
	if !strings.Contains(gotBody, "the transcript text") || !strings.Contains(gotBody, "talk.mp3") {
		t.Fatalf("body missing transcript or filename: %q", gotBody)
	}

	got, _ := store.Get(j.ID)
	if got.State != job.StateCompleted {
		t.Fatalf("state = %s, want completed", got.State)
	}
	if got.Transcript != "" {
		t.Fatal("transcript should be cleared after successful delivery")
	}
	if got.CompletedAt.IsZero() {
		t.Fatal("completed_at should be set")
	}
}

// TestDeliverRetriesThenSucceeds verifies transient failures are absorbed.
func TestDeliverRetriesThenSucceeds(t *testing.T) {
	store := job.NewStore()
	j := deliveringJob(t, store, "text")

	attempts := 0
	transport := &mockTransport{SendFunc: func(ctx context.Context, to, subject, body string) error {
		attempts++
		if attempts < 3 {
			return errors.New("smtp unavailable")
		}
		return nil
	}}

	svc := NewService(store, transport, config.DeliveryConfig{MaxAttempts: 3, BackoffBase: time.Millisecond})
	svc.Deliver(context.Background(), j)

	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	got, _ := store.Get(j.ID)
	if got.State != job.StateCompleted {
		t.Fatalf("state = %s, want completed", got.State)
	}
}

// TestDeliverExhaustion fails the job and keeps the transcript around.
func TestDeliverExhaustion(t *testing.T) {
	store := job.NewStore()
	j := deliveringJob(t, store, "keep me")

	transport := &mockTransport{SendFunc: func(ctx context.Context, to, subject, body string) error {
		return errors.New("permanent failure")
	}}

	svc := NewService(store, transport, config.DeliveryConfig{MaxAttempts: 3, BackoffBase: time.Millisecond})
	svc.Deliver(context.Background(), j)

	if len(transport.calls) != 3 {
		t.Fatalf("send calls = %d, want 3", len(transport.calls))
	}
	got, _ := store.Get(j.ID)
	if got.State != job.StateFailed {
		t.Fatalf("state = %s, want failed", got.State)
	}
	if got.FailureReason != job.ReasonDeliveryFailed {
		t.Fatalf("reason = %s, want delivery_failed", got.FailureReason)
	}
	if got.Transcript != "keep me" {
		t.Fatal("transcript must be retained for manual resend")
	}
}

// TestBackoffStrictlyIncreasing checks the retry schedule doubles.
func TestBackoffStrictlyIncreasing(t *testing.T) {
	svc := NewService(nil, nil, config.DeliveryConfig{MaxAttempts: 5, BackoffBase: 2 * time.Second})
	prev := time.Duration(0)
	for attempt := 1; attempt < 5; attempt++ {
		d := svc.Backoff(attempt)
		if d <= prev {
			t.Fatalf("backoff(%d) = %v, not greater than %v", attempt, d, prev)
		}
		prev = d
	}
	if svc.Backoff(1) != 2*time.Second || svc.Backoff(2) != 4*time.Second {
		t.Fatal("backoff should double from the base")
	}
}

// TestDeliverStopsOnCancel aborts waiting when the context is cancelled.
func TestDeliverStopsOnCancel(t *testing.T) {
	store := job.NewStore()
	j := deliveringJob(t, store, "text")

	ctx, cancel := context.WithCancel(context.Background())
	transport := &mockTransport{SendFunc: func(ctx context.Context, to, subject, body string) error {
		cancel()
		return errors.New("failed")
	}}

	svc := NewService(store, transport, config.DeliveryConfig{MaxAttempts: 10, BackoffBase: time.Hour})
	done := make(chan struct{})
	go func() {
		svc.Deliver(ctx, j)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deliver did not stop after cancellation")
	}

	got, _ := store.Get(j.ID)
	if got.State != job.StateFailed {
		t.Fatalf("state = %s, want failed after abandoned delivery", got.State)
	}
}
