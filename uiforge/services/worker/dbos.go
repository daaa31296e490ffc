package worker

import (
	"context"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
)

// DBOSDispatcher runs each job as a durable workflow whose id is the assistant
// message id, so a job survives restarts and never runs twice.
type DBOSDispatcher struct {
	dctx dbos.DBOSContext
	proc JobProcessor
}

// NewDBOSDispatcher registers the workflow; call it before dbos.Launch.
func NewDBOSDispatcher(dctx dbos.DBOSContext, proc JobProcessor) *DBOSDispatcher {
	d := &DBOSDispatcher{dctx: dctx, proc: proc}
	dbos.RegisterWorkflow(dctx, d.generateWorkflow)
	return d
}

func (d *DBOSDispatcher) generateWorkflow(ctx dbos.DBOSContext, job Job) (string, error) {
	return dbos.RunAsStep(ctx, func(stepCtx context.Context) (string, error) {
		if err := d.proc.Process(stepCtx, job); err != nil {
			return "", err
		}
		return job.AssistantMessageID.String(), nil
	})
}

func (d *DBOSDispatcher) Dispatch(_ context.Context, job Job) error {
	_, err := dbos.RunWorkflow(d.dctx, d.generateWorkflow, job, dbos.WithWorkflowID(job.AssistantMessageID.String()))
	return err
}

// Shutdown is a no-op; the owner of the DBOS context shuts it down.
func (d *DBOSDispatcher) Shutdown(context.Context) error {
	return nil
}
