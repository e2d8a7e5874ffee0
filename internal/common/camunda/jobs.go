// internal/common/camunda/jobs.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/metrics"
	"interview-prep-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// JobRun tracks metrics and the trace span for one activated job.
type JobRun struct {
	taskType string
	start    time.Time
	obs      *observability.Observability
	span     trace.Span
}

// BeginJob marks the job active and opens a span when tracing is configured.
func BeginJob(ctx context.Context, obs *observability.Observability, taskType string, job entities.Job) (context.Context, *JobRun) {
	metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
	run := &JobRun{taskType: taskType, start: time.Now(), obs: obs}
	if obs != nil {
		ctx, run.span = obs.StartSpan(ctx, taskType,
			attribute.Int64("job.key", job.GetKey()),
			attribute.Int64("process.instance.key", job.GetProcessInstanceKey()),
		)
	}
	return ctx, run
}

// End records the outcome. err is the job's failure, nil on success.
func (r *JobRun) End(ctx context.Context, err error) {
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()
	elapsed := time.Since(r.start)

	status := "completed"
	if err != nil {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, ErrorCode(err)).Inc()
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
		metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(elapsed.Seconds())
	}

	if r.obs != nil {
		r.obs.RecordJobProcessed(ctx, r.taskType, status)
		r.obs.RecordJobDuration(ctx, r.taskType, elapsed, status)
	}
	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, ErrorCode(err))
		}
		r.span.End()
	}
}

// CompleteJob completes the job with the given output variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, variables map[string]interface{}) error {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		return fmt.Errorf("failed to create complete job command: %w", err)
	}
	if _, err := request.Send(ctx); err != nil {
		return fmt.Errorf("failed to complete job %d: %w", job.GetKey(), err)
	}
	return nil
}

// ErrorCode is the taxonomy code used as the failure metric label.
func ErrorCode(err error) string {
	if stdErr, ok := errors.AsStandardError(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}

// ParseVariables decodes the job variables, reporting undecodable payloads as a
// validation failure so the job is not retried.
func ParseVariables(job entities.Job) (map[string]interface{}, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("failed to parse job variables: %v", err))
	}
	return variables, nil
}
