// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	AccountsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_created_total",
			Help: "Accounts created, by sign-up path",
		},
		[]string{"provider"},
	)

	PlanUpgrades = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_upgrades_total",
			Help: "Plan upgrades applied, by target plan",
		},
		[]string{"plan"},
	)

	SignInCancellations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sign_in_cancellations_total",
			Help: "Interactive sign-ins dismissed or timed out",
		},
	)

	GateStates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_gate_states_total",
			Help: "Content gate evaluations, by resulting state",
		},
		[]string{"state"},
	)

	EntitlementCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_cache_lookups_total",
			Help: "Entitlement cache lookups, by result",
		},
		[]string{"result"},
	)
)
