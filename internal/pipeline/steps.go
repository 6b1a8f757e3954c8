package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/imagefinder/internal/aggregate"
	"github.com/nao1215/imagefinder/internal/classify"
	"github.com/nao1215/imagefinder/internal/snapshot"
	"github.com/nao1215/imagefinder/internal/stream"
)

// Step names.
const (
	StepDecode   = "decode"
	StepClassify = "classify"
	StepMerge    = "merge"
	StepPublish  = "publish"
)

// DecodeStep decodes the new part of the cumulative text.
type DecodeStep struct {
	decoder *stream.Decoder
}

// NewDecodeStep creates a DecodeStep that advances decoder.
func NewDecodeStep(decoder *stream.Decoder) *DecodeStep {
	return &DecodeStep{decoder: decoder}
}

// Name returns the step name.
func (s *DecodeStep) Name() string {
	return StepDecode
}

// Do decodes d.Text into d.Records.
func (s *DecodeStep) Do(_ context.Context, d *Delivery) error {
	d.Records = s.decoder.Feed(d.Text)
	return nil
}

// ClassifyStep places the decoded records.
type ClassifyStep struct {
	logger *slog.Logger
}

// NewClassifyStep creates a ClassifyStep.
func NewClassifyStep(logger *slog.Logger) *ClassifyStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyStep{logger: logger}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return StepClassify
}

// Do classifies d.Records into d.Placements.
func (s *ClassifyStep) Do(_ context.Context, d *Delivery) error {
	d.Placements = classify.ClassifyAll(d.Records)
	for _, p := range d.Placements {
		if len(p.Rejected) > 0 {
			s.logger.Warn("dropped items under a reserved group key",
				"groups", p.Rejected,
			)
		}
	}
	return nil
}

// MergeStep merges placements into the operation's store.
type MergeStep struct {
	store *aggregate.Store
}

// NewMergeStep creates a MergeStep for store.
func NewMergeStep(store *aggregate.Store) *MergeStep {
	return &MergeStep{store: store}
}

// Name returns the step name.
func (s *MergeStep) Name() string {
	return StepMerge
}

// Do merges d.Placements in order.
func (s *MergeStep) Do(_ context.Context, d *Delivery) error {
	d.Merge = s.store.MergeAll(d.Placements)
	return nil
}

// PublishStep publishes a snapshot when the merge changed the store.
type PublishStep struct {
	store     *aggregate.Store
	publisher *snapshot.Publisher
}

// NewPublishStep creates a PublishStep.
func NewPublishStep(store *aggregate.Store, publisher *snapshot.Publisher) *PublishStep {
	return &PublishStep{store: store, publisher: publisher}
}

// Name returns the step name.
func (s *PublishStep) Name() string {
	return StepPublish
}

// Do publishes the store if d.Merge reports a change.
func (s *PublishStep) Do(_ context.Context, d *Delivery) error {
	if !d.Merge.Changed() {
		return nil
	}
	s.publisher.Publish(s.store)
	d.Published = true
	return nil
}

// Default builds the standard decode, classify, merge and publish pipeline.
func Default(decoder *stream.Decoder, store *aggregate.Store, publisher *snapshot.Publisher, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewDecodeStep(decoder),
		NewClassifyStep(p.logger),
		NewMergeStep(store),
		NewPublishStep(store, publisher),
	)
	return p
}
