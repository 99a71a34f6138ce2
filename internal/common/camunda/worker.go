// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// RunFunc performs one pipeline run and returns the variables to complete
// the job with.
type RunFunc func(ctx context.Context) (map[string]interface{}, error)

// JobTrigger runs a pipeline job each time the broker activates a job of
// its task type. Job variables are ignored: a run always works on the
// current contents of the stores.
type JobTrigger struct {
	taskType   string
	run        RunFunc
	timeout    time.Duration
	backoff    time.Duration
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewJobTrigger(taskType string, run RunFunc, timeout, backoff time.Duration, log logger.Logger) *JobTrigger {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	return &JobTrigger{
		taskType:   taskType,
		run:        run,
		timeout:    timeout,
		backoff:    backoff,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

// Handle matches worker.JobHandler.
func (t *JobTrigger) Handle(client worker.JobClient, job entities.Job) {
	t.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
		"retries":     job.Retries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	vars, err := t.run(ctx)
	if err != nil {
		t.errHandler.HandleJobError(ctx, client, job, err, t.backoff)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromMap(vars)
	if err != nil {
		t.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		t.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	t.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

// Open starts polling for jobs of the trigger's task type.
func (t *JobTrigger) Open(client zbc.Client, maxJobsActive int) worker.JobWorker {
	return client.NewJobWorker().
		JobType(t.taskType).
		Handler(t.Handle).
		MaxJobsActive(maxJobsActive).
		Timeout(t.timeout).
		Open()
}
