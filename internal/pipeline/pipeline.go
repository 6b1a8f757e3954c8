package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/imagefinder/internal/aggregate"
	"github.com/nao1215/imagefinder/internal/classify"
	"github.com/nao1215/imagefinder/internal/model"
)

// Delivery is the unit of work passed through the pipeline.
type Delivery struct {
	// Text is the cumulative text received so far.
	Text string

	// Records are the records decoded from the new part of Text.
	Records []model.Record

	// Placements are the classified records, in record order.
	Placements []classify.Placement

	// Merge describes what merging the placements changed.
	Merge aggregate.MergeResult

	// Published reports whether a snapshot was sent for this delivery.
	Published bool

	// Performed lists the names of the steps that completed.
	Performed []string
}

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do runs the step against the delivery. An error stops the pipeline.
	Do(ctx context.Context, d *Delivery) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and returns the first error.
// Cancellation is checked before each step.
func (p *Pipeline) Execute(ctx context.Context, d *Delivery) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Debug("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		if err := step.Do(ctx, d); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", err,
			)
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"bytes", len(d.Text),
		)
		d.Performed = append(d.Performed, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
