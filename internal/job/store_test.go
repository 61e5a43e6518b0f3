package job

import (
	"sync"
	"testing"
)

// TestStoreLifecycle verifies normal progression to completed state.
func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	id := s.Create(Job{Email: "a@example.com", TempPath: "/tmp/upload_x.wav"})
	if id == "" {
		t.Fatal("expected non-empty job id")
	}

	j, err := s.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if j.State != StateReceived {
		t.Fatalf("state = %s, want received", j.State)
	}
	if j.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	if !s.TryClaim(id, StateReceived, StateTranscribing) {
		t.Fatal("claim received->transcribing failed")
	}
	if !s.TryClaim(id, StateTranscribing, StateDelivering, func(j *Job) { j.Transcript = "hello" }) {
		t.Fatal("claim transcribing->delivering failed")
	}

	j, _ = s.Get(id)
	if j.TempPath != "" {
		t.Fatal("temp path should be cleared on leaving transcribing")
	}
	if j.Transcript != "hello" {
		t.Fatalf("transcript = %q, want hello", j.Transcript)
	}

	if !s.TryClaim(id, StateDelivering, StateCompleted, func(j *Job) { j.Transcript = "" }) {
		t.Fatal("claim delivering->completed failed")
	}
	j, _ = s.Get(id)
	if j.CompletedAt.IsZero() {
		t.Fatal("expected completed_at to be set")
	}
}

// TestStoreConcurrentClaim checks that racing claims yield exactly one winner.
func TestStoreConcurrentClaim(t *testing.T) {
	s := NewStore()
	id := s.Create(Job{})

	const racers = 32
	var wg sync.WaitGroup
	wins := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- s.TryClaim(id, StateReceived, StateTranscribing)
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("claim winners = %d, want exactly 1", won)
	}
}

// TestStoreRejectsInvalidClaims covers wrong from-state, illegal edges,
// terminal immutability and unknown ids.
func TestStoreRejectsInvalidClaims(t *testing.T) {
	s := NewStore()
	id := s.Create(Job{})

	if s.TryClaim(id, StateTranscribing, StateDelivering) {
		t.Fatal("claim with wrong from-state should fail")
	}
	if s.TryClaim(id, StateReceived, StateCompleted) {
		t.Fatal("received->completed is not a legal edge")
	}
	if s.TryClaim("no-such-id", StateReceived, StateTranscribing) {
		t.Fatal("claim on unknown id should fail")
	}

	s.TryClaim(id, StateReceived, StateTranscribing)
	s.TryClaim(id, StateTranscribing, StateFailed, func(j *Job) { j.FailureReason = ReasonEngineFailure })

	if s.TryClaim(id, StateFailed, StateReceived) {
		t.Fatal("terminal state must be immutable")
	}
	j, _ := s.Get(id)
	if j.FailureReason != ReasonEngineFailure {
		t.Fatalf("failure reason = %q, want engine_failure", j.FailureReason)
	}
}

// TestStoreListByState verifies creation-order scanning and filtering.
func TestStoreListByState(t *testing.T) {
	s := NewStore()
	first := s.Create(Job{})
	second := s.Create(Job{})
	third := s.Create(Job{})

	s.TryClaim(second, StateReceived, StateTranscribing)

	received := s.ListByState(StateReceived)
	if len(received) != 2 {
		t.Fatalf("received jobs = %d, want 2", len(received))
	}
	if received[0].ID != first || received[1].ID != third {
		t.Fatal("expected creation order in scan results")
	}

	if n := len(s.ListByState(StateCompleted)); n != 0 {
		t.Fatalf("completed jobs = %d, want 0", n)
	}
}

// TestStoreActiveTempPaths checks that only live stages are reported.
func TestStoreActiveTempPaths(t *testing.T) {
	s := NewStore()
	live := s.Create(Job{TempPath: "/tmp/upload_live.wav"})
	done := s.Create(Job{TempPath: "/tmp/upload_done.wav"})

	s.TryClaim(done, StateReceived, StateTranscribing)
	s.TryClaim(done, StateTranscribing, StateFailed)

	paths := s.ActiveTempPaths()
	if !paths["/tmp/upload_live.wav"] {
		t.Fatal("live job's temp path missing")
	}
	if paths["/tmp/upload_done.wav"] {
		t.Fatal("terminal job's temp path should not be active")
	}
	_ = live

	if _, err := s.Get("missing"); err != ErrNotFound {
		t.Fatalf("get missing = %v, want ErrNotFound", err)
	}
}
