package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"audiototext-backend/internal/cleanup"
	"audiototext-backend/internal/config"
	"audiototext-backend/internal/delivery"
	"audiototext-backend/internal/job"
	"audiototext-backend/internal/metrics"
	"audiototext-backend/internal/stt"
)

// Pool runs a fixed number of workers that pull received jobs from the
// store and drive each claimed job end to end: transcription, temp
// release, delivery. Exclusivity comes entirely from the store's claim;
// a worker that loses the claim race walks away without side effects.
type Pool struct {
	store     *job.Store
	engine    stt.Engine
	deliverer *delivery.Service
	cleaner   *cleanup.Manager

	count        int
	pollInterval time.Duration
	timeout      time.Duration

	wg sync.WaitGroup
}

func NewPool(store *job.Store, engine stt.Engine, deliverer *delivery.Service, cleaner *cleanup.Manager, cfg config.WorkerConfig) *Pool {
	return &Pool{
		store:        store,
		engine:       engine,
		deliverer:    deliverer,
		cleaner:      cleaner,
		count:        cfg.Count,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.TranscribeTimeout,
	}
}

// Start launches the workers. They run until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	slog.Info("starting worker pool", "workers", p.count, "engine", p.engine.Name())
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go func(n int) {
			defer p.wg.Done()
			p.run(ctx, n)
		}(i)
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, n int) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		p.drain(ctx, n)
		select {
		case <-ctx.Done():
			return
		case <-p.store.Wake():
		case <-ticker.C:
		}
	}
}

// drain scans for received jobs and processes every one this worker
// manages to claim. Jobs claimed by other workers in the meantime are
// skipped silently.
func (p *Pool) drain(ctx context.Context, n int) {
	for _, j := range p.store.ListByState(job.StateReceived) {
		if ctx.Err() != nil {
			return
		}
		if !p.store.TryClaim(j.ID, job.StateReceived, job.StateTranscribing) {
			continue
		}
		p.process(ctx, n, j.ID)
	}
}

func (p *Pool) process(ctx context.Context, n int, id string) {
	j, err := p.store.Get(id)
	if err != nil {
		return
	}
	tempPath := j.TempPath
	slog.Info("processing job", "worker", n, "job_id", id, "file", j.Filename, "bytes", j.ByteSize)

	text, reason := p.transcribe(ctx, tempPath)
	if reason != "" {
		if p.store.TryClaim(id, job.StateTranscribing, job.StateFailed, func(j *job.Job) {
			j.FailureReason = reason
		}) {
			metrics.IncJobFailed(reason)
		}
		p.cleaner.Release(tempPath)
		slog.Warn("transcription failed", "worker", n, "job_id", id, "reason", reason)
		return
	}

	if !p.store.TryClaim(id, job.StateTranscribing, job.StateDelivering, func(j *job.Job) {
		j.Transcript = text
	}) {
		p.cleaner.Release(tempPath)
		return
	}
	// The audio has served its purpose; release it now, whatever the
	// delivery outcome.
	p.cleaner.Release(tempPath)

	j, err = p.store.Get(id)
	if err != nil {
		return
	}
	p.deliverer.Deliver(ctx, j)
}

// transcribe invokes the engine under the configured deadline, allowing
// one silent retry for transient engine errors. It returns the text, or
// a failure reason category when the job should fail.
func (p *Pool) transcribe(ctx context.Context, path string) (string, string) {
	tctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	for attempt := 0; attempt < 2; attempt++ {
		res, err := p.engine.Transcribe(tctx, stt.Request{FilePath: path})
		if err == nil {
			metrics.ObserveTranscribeSeconds(time.Since(start).Seconds())
			return res.Text, ""
		}
		if errors.Is(err, context.DeadlineExceeded) || tctx.Err() != nil {
			return "", job.ReasonTimeout
		}
		slog.Warn("engine call failed", "path", path, "attempt", attempt+1, "error", err)
	}
	return "", job.ReasonEngineFailure
}
