// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"interview-prep-workers/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobHandler is implemented by every task handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
	GetTaskType() string
}

// CamundaWorker is one open job subscription.
type CamundaWorker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// NewWorker opens a job worker for handler using its per-task settings.
func NewWorker(client zbc.Client, workerName string, cfg config.WorkerConfig, handler JobHandler, logger *zap.Logger) *CamundaWorker {
	taskType := handler.GetTaskType()

	maxJobs := cfg.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = 5
	}
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(maxJobs).
		Timeout(timeout).
		Name(workerName).
		Open()

	logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", maxJobs),
		zap.Duration("timeout", timeout),
	)

	return &CamundaWorker{worker: jobWorker, logger: logger, taskType: taskType}
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the subscription and waits for in-flight jobs, bounded by ctx.
func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))

	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker stop timed out", zap.String("taskType", w.taskType))
	}
}
