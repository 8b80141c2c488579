package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all booking pipeline metrics
type Metrics struct {
	// Reservation metrics
	HoldsGranted      prometheus.Counter
	HoldsReplayed     prometheus.Counter
	CapacityConflicts prometheus.Counter

	// Appointment metrics
	Commits           prometheus.Counter
	CommitFailures    *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	VersionConflicts  prometheus.Counter

	// Reaper metrics
	ReaperDeleted  prometheus.Counter
	ReaperDuration prometheus.Histogram
	ReaperRuns     *prometheus.CounterVec

	// Guest token metrics
	TokenValidationFailures prometheus.Counter
	TokenRateLimited        prometheus.Counter

	// Audit metrics
	AuditWriteFailures prometheus.Counter

	// Notification metrics
	NotificationsDispatched *prometheus.CounterVec
	NotificationFailures    *prometheus.CounterVec
}

// NewMetrics creates and registers all booking metrics on the given
// registerer. Tests pass an isolated prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HoldsGranted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "holds_granted_total",
			Help:      "Total number of reservation holds granted",
		}),
		HoldsReplayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "holds_replayed_total",
			Help:      "Total number of hold requests answered from an existing reservation via idempotency key",
		}),
		CapacityConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "capacity_conflicts_total",
			Help:      "Total number of hold requests rejected because the slot was full",
		}),
		Commits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commits_total",
			Help:      "Total number of reservations committed into appointments",
		}),
		CommitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commit_failures_total",
			Help:      "Total number of failed commit attempts",
		}, []string{"reason"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "status_transitions_total",
			Help:      "Total number of appointment status transitions",
		}, []string{"from", "to"}),
		VersionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "version_conflicts_total",
			Help:      "Total number of optimistic-lock conflicts on appointment updates",
		}),
		ReaperDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reaper_deleted_total",
			Help:      "Total number of expired reservations deleted by the reaper",
		}),
		ReaperDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reaper_duration_seconds",
			Help:      "Time spent per reaper sweep",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		ReaperRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reaper_runs_total",
			Help:      "Total number of reaper sweeps by trigger",
		}, []string{"trigger"}),
		TokenValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "guest_token_failures_total",
			Help:      "Total number of rejected guest token validations",
		}),
		TokenRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "guest_token_rate_limited_total",
			Help:      "Total number of guest token attempts rejected by the rate limiter",
		}),
		AuditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_write_failures_total",
			Help:      "Total number of audit log entries that could not be persisted",
		}),
		NotificationsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_dispatched_total",
			Help:      "Total number of notification events dispatched",
		}, []string{"event_type"}),
		NotificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notification_failures_total",
			Help:      "Total number of notification dispatch failures (best-effort, never fatal)",
		}, []string{"event_type"}),
	}
}
