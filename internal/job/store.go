package job

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a job id has no record.
var ErrNotFound = errors.New("job not found")

// Store is the in-process job registry. It is the sole writer of job
// state: all transitions go through TryClaim, which is atomic per job.
// The map mutex only guards membership; unrelated jobs never contend.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]*entry
	order []string

	wake chan struct{}
}

type entry struct {
	mu  sync.Mutex
	job Job
}

func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*entry),
		wake: make(chan struct{}, 1),
	}
}

// Create registers a new job in received state and returns its id.
// The id, state and creation time are assigned here regardless of
// what the caller filled in.
func (s *Store) Create(j Job) string {
	j.ID = uuid.NewString()
	j.State = StateReceived
	j.CreatedAt = time.Now()

	s.mu.Lock()
	s.jobs[j.ID] = &entry{job: j}
	s.order = append(s.order, j.ID)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return j.ID
}

// Get returns a snapshot of the job, or ErrNotFound.
func (s *Store) Get(id string) (Job, error) {
	e := s.lookup(id)
	if e == nil {
		return Job{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job, nil
}

// TryClaim atomically moves a job from one state to another, applying
// the given mutations in the same critical section. It returns false
// if the job does not exist, is not currently in from, or the edge is
// not part of the state machine. A false return means another actor
// already advanced the job; the caller must discard the attempt.
func (s *Store) TryClaim(id string, from, to State, muts ...func(*Job)) bool {
	e := s.lookup(id)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.State != from || !validTransition(from, to) {
		return false
	}

	for _, mut := range muts {
		mut(&e.job)
	}
	e.job.State = to

	// The staged audio is owned only while received or transcribing.
	if to != StateReceived && to != StateTranscribing {
		e.job.TempPath = ""
	}
	if to.Terminal() {
		e.job.CompletedAt = time.Now()
	}
	return true
}

// ListByState returns snapshots of all jobs currently in the given
// state, in creation order.
func (s *Store) ListByState(state State) []Job {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	s.mu.RUnlock()

	var out []Job
	for _, id := range ids {
		e := s.lookup(id)
		if e == nil {
			continue
		}
		e.mu.Lock()
		if e.job.State == state {
			out = append(out, e.job)
		}
		e.mu.Unlock()
	}
	return out
}

// ActiveTempPaths returns the staged file paths owned by live jobs.
// The startup sweep uses it to tell orphans from in-flight uploads.
func (s *Store) ActiveTempPaths() map[string]bool {
	paths := make(map[string]bool)
	for _, state := range []State{StateReceived, StateTranscribing} {
		for _, j := range s.ListByState(state) {
			if j.TempPath != "" {
				paths[j.TempPath] = true
			}
		}
	}
	return paths
}

// Wake signals when a new job is created so pollers can scan without
// waiting out their interval. The channel carries no backlog; a missed
// signal is covered by the next poll tick.
func (s *Store) Wake() <-chan struct{} {
	return s.wake
}

func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}
