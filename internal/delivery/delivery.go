package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"audiototext-backend/internal/config"
	"audiototext-backend/internal/job"
	"audiototext-backend/internal/mail"
	"audiototext-backend/internal/metrics"
)

// Service sends finished transcripts to the requester by email. It is
// invoked by the worker that holds the job, once the job is in
// delivering state.
type Service struct {
	store       *job.Store
	transport   mail.Transport
	maxAttempts int
	backoffBase time.Duration
}

func NewService(store *job.Store, transport mail.Transport, cfg config.DeliveryConfig) *Service {
	return &Service{
		store:       store,
		transport:   transport,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
	}
}

// Deliver sends j's transcript, retrying with exponential backoff up to
// the configured attempt count, then advances the job to its terminal
// state. On exhaustion the transcript stays in the record for manual
// resend; only the audio is discarded eagerly, the text is small and
// valuable.
func (s *Service) Deliver(ctx context.Context, j job.Job) {
	subject := fmt.Sprintf("Your transcription (job %s)", j.ID)
	body := composeBody(j)

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		lastErr = s.transport.Send(ctx, j.Email, subject, body)
		metrics.IncDeliveryAttempt(lastErr == nil)
		if lastErr == nil {
			if s.store.TryClaim(j.ID, job.StateDelivering, job.StateCompleted, func(j *job.Job) {
				j.Transcript = ""
			}) {
				metrics.IncJobCompleted()
			}
			slog.Info("transcript delivered", "job_id", j.ID, "attempt", attempt)
			return
		}

		slog.Warn("delivery attempt failed", "job_id", j.ID, "attempt", attempt, "error", lastErr)
		if attempt == s.maxAttempts {
			break
		}
		if err := sleepCtx(ctx, s.Backoff(attempt)); err != nil {
			break
		}
	}

	if s.store.TryClaim(j.ID, job.StateDelivering, job.StateFailed, func(j *job.Job) {
		j.FailureReason = job.ReasonDeliveryFailed
	}) {
		metrics.IncJobFailed(job.ReasonDeliveryFailed)
	}
	slog.Error("delivery exhausted retries", "job_id", j.ID, "attempts", s.maxAttempts, "error", lastErr)
}

// Backoff returns the wait before the attempt following the given one.
// The schedule doubles from the base, so waits are strictly increasing.
func (s *Service) Backoff(attempt int) time.Duration {
	return s.backoffBase << (attempt - 1)
}

func composeBody(j job.Job) string {
	return fmt.Sprintf(
		"Hello,\n\nBelow is the transcription for job %s (file: %s).\n\n--- Transcript ---\n\n%s\n\nRegards,\nYour Transcription Server\n",
		j.ID, j.Filename, j.Transcript,
	)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
