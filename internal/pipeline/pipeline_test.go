package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/imagefinder/internal/aggregate"
	"github.com/nao1215/imagefinder/internal/snapshot"
	"github.com/nao1215/imagefinder/internal/stream"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, d *Delivery) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, d *Delivery) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, d)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineExecute tests ordered step execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New()
		for _, name := range []string{"one", "two", "three"} {
			p.AddStep(&mockStep{
				name: name,
				doFunc: func(_ context.Context, _ *Delivery) error {
					order = append(order, name)
					return nil
				},
			})
		}

		d := &Delivery{}
		if err := p.Execute(context.Background(), d); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"one", "two", "three"}, order); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(p.StepNames(), d.Performed); diff != "" {
			t.Errorf("performed mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(context.Context, *Delivery) error { return errBoom }}
		after := &mockStep{name: "after"}

		p := New()
		p.AddSteps(failing, after)

		err := p.Execute(context.Background(), &Delivery{})
		if !errors.Is(err, errBoom) {
			t.Errorf("expected errBoom, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later steps to be skipped")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New()
		p.AddStep(step)

		if err := p.Execute(ctx, &Delivery{}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("expected step not to run")
		}
	})
}

// TestDefaultPipeline tests the standard delivery stages end to end.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	var published int
	store := aggregate.NewStore()
	publisher := snapshot.NewPublisher(snapshot.Funcs{
		Snapshot: func(aggregate.Snapshot) { published++ },
	})
	p := Default(stream.NewDecoder(), store, publisher)

	if diff := cmp.Diff([]string{StepDecode, StepClassify, StepMerge, StepPublish}, p.StepNames()); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}

	line1 := `{"a":{"level":1,"images":{"u1":{"imageUrl":"http://x/1.png","type":"ORDINARY"}}}}`
	line2 := `{"b":{"level":1,"images":{"u2":{"imageUrl":"http://x/2.png","type":"LOGO"}}}}`

	deliveries := []struct {
		text      string
		records   int
		published bool
	}{
		{text: line1[:10], records: 0, published: false},
		{text: line1 + "\n", records: 1, published: true},
		{text: line1 + "\n" + line2[:30], records: 0, published: false},
		{text: line1 + "\n" + line2 + "\n", records: 1, published: true},
		{text: line1 + "\n" + line2 + "\n" + line1 + "\n", records: 1, published: false},
	}

	for i, tc := range deliveries {
		d := &Delivery{Text: tc.text}
		if err := p.Execute(context.Background(), d); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i, err)
		}
		if len(d.Records) != tc.records {
			t.Errorf("delivery %d: expected %d records, got %d", i, tc.records, len(d.Records))
		}
		if d.Published != tc.published {
			t.Errorf("delivery %d: expected published=%v", i, tc.published)
		}
	}

	if published != 2 {
		t.Errorf("expected 2 publications, got %d", published)
	}

	snap := store.Snapshot()
	if _, ok := snap.Group("a"); !ok {
		t.Error("expected group a")
	}
	if _, ok := snap.Group("b"); ok {
		t.Error("group b must not exist")
	}
	if g, ok := snap.Group("logos"); !ok || g.Len() != 1 {
		t.Error("expected one logo")
	}
}
