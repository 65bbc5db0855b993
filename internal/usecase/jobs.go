package usecase

import (
	"context"
	"fmt"

	"SignalFuse/pkg/queue"
)

// Queue message types.
const (
	MsgTypeRunCycle = "run_cycle"
)

// CycleJob runs a full evaluation cycle when a run_cycle message arrives.
// The HTTP trigger enqueues instead of evaluating inline so a slow cycle
// never ties up a request.
type CycleJob struct {
	runner *CycleRunner
}

func NewCycleJob(runner *CycleRunner) *CycleJob {
	return &CycleJob{runner: runner}
}

func (j *CycleJob) Name() string { return "evaluation_cycle" }

func (j *CycleJob) Type() string { return MsgTypeRunCycle }

func (j *CycleJob) Handle(ctx context.Context, _ interface{}) error {
	report, err := j.runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("run cycle: %w", err)
	}
	if report != nil && report.Failed > 0 {
		return fmt.Errorf("cycle finished with %d failed keys", report.Failed)
	}
	return nil
}

var _ queue.Job = (*CycleJob)(nil)
