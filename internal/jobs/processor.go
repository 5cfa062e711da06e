package jobs

import (
	"context"
	"time"

	"taxengine/internal/model"
)

// Reporter persists and pushes a progress percentage for the running job
type Reporter func(percent int) error

// Processor does the work of one job kind
type Processor interface {
	Process(ctx context.Context, job *model.ProcessingJob, report Reporter) error
}

// ProcessorFunc adapts a function to Processor
type ProcessorFunc func(ctx context.Context, job *model.ProcessingJob, report Reporter) error

func (f ProcessorFunc) Process(ctx context.Context, job *model.ProcessingJob, report Reporter) error {
	return f(ctx, job, report)
}

// SteppedProcessor walks through fixed progress checkpoints with a pause
// between them. It stands in for extraction and validation back ends.
type SteppedProcessor struct {
	Steps []int
	Pause time.Duration
}

// DefaultProcessor is used for kinds without a registered processor
func DefaultProcessor() *SteppedProcessor {
	return &SteppedProcessor{Steps: []int{10, 35, 60, 85}, Pause: 500 * time.Millisecond}
}

func (p *SteppedProcessor) Process(ctx context.Context, job *model.ProcessingJob, report Reporter) error {
	for _, step := range p.Steps {
		if p.Pause > 0 {
			timer := time.NewTimer(p.Pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := report(step); err != nil {
			return err
		}
	}
	return nil
}
