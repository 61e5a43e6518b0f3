package job

import "time"

// State identifies a job's position in the pipeline.
type State string

const (
	StateReceived     State = "received"
	StateTranscribing State = "transcribing"
	StateDelivering   State = "delivering"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Failure reason categories exposed through the status endpoint.
const (
	ReasonTimeout        = "timeout"
	ReasonEngineFailure  = "engine_failure"
	ReasonDeliveryFailed = "delivery_failed"
)

// Job is the tracked unit of work from upload to terminal outcome.
type Job struct {
	ID          string    `json:"id"`
	State       State     `json:"state"`
	Email       string    `json:"email"`
	Filename    string    `json:"filename"`
	ByteSize    int64     `json:"byte_size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	// TempPath holds the staged audio file while the job is in
	// received or transcribing; cleared on every other transition.
	TempPath string `json:"-"`

	// Transcript is held only between engine success and delivery
	// success; retained after delivery exhaustion for manual resend.
	Transcript string `json:"-"`

	FailureReason string `json:"failure_reason,omitempty"`
}

// Terminal reports whether s is an immutable end state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// validTransition enforces the allowed state machine edges.
func validTransition(from, to State) bool {
	switch from {
	case StateReceived:
		return to == StateTranscribing
	case StateTranscribing:
		return to == StateDelivering || to == StateFailed
	case StateDelivering:
		return to == StateCompleted || to == StateFailed
	default:
		return false
	}
}
