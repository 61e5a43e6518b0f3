package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	jobsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_created_total",
			Help: "Total number of jobs accepted by the ingest handler.",
		},
	)

	jobsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Total number of jobs that reached completed state.",
		},
	)

	jobsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Jobs that reached failed state, by failure reason.",
		},
		[]string{"reason"},
	)

	uploadsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_rejected_total",
			Help: "Submissions rejected at ingest, by validation category.",
		},
		[]string{"reason"},
	)

	transcribeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transcribe_duration_seconds",
			Help:    "Wall-clock duration of transcription engine calls.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	deliveryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_attempts_total",
			Help: "Email delivery attempts by outcome (success/failure).",
		},
		[]string{"outcome"},
	)

	sweepRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_removed_total",
			Help: "Orphaned temp files removed by the startup sweep.",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			jobsCreatedTotal, jobsCompletedTotal, jobsFailedTotal,
			uploadsRejectedTotal, transcribeSeconds,
			deliveryAttemptsTotal, sweepRemovedTotal,
		)
	})
}

func IncJobCreated() { jobsCreatedTotal.Inc() }

func IncJobCompleted() { jobsCompletedTotal.Inc() }

func IncJobFailed(reason string) { jobsFailedTotal.WithLabelValues(reason).Inc() }

func IncUploadRejected(reason string) { uploadsRejectedTotal.WithLabelValues(reason).Inc() }

func ObserveTranscribeSeconds(sec float64) { transcribeSeconds.Observe(sec) }

func IncDeliveryAttempt(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	deliveryAttemptsTotal.WithLabelValues(outcome).Inc()
}

func IncSweepRemoved() { sweepRemovedTotal.Inc() }
