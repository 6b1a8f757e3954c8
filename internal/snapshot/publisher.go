package snapshot

import (
	"log/slog"

	"github.com/nao1215/imagefinder/internal/aggregate"
)

// Publisher forwards snapshots of a store to a Presenter.
type Publisher struct {
	presenter Presenter
	logger    *slog.Logger

	published int
	last      aggregate.Snapshot
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger used to trace publications.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a Publisher for presenter. A nil presenter discards
// everything.
func NewPublisher(presenter Presenter, opts ...Option) *Publisher {
	if presenter == nil {
		presenter = Funcs{}
	}
	p := &Publisher{presenter: presenter}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Publish sends the full current contents of store.
func (p *Publisher) Publish(store *aggregate.Store) aggregate.Snapshot {
	snap := store.Snapshot()
	p.published++
	p.last = snap

	p.logger.Debug("publishing snapshot",
		"seq", snap.Seq(),
		"items", snap.ItemCount(),
		"publication", p.published,
	)
	p.presenter.OnSnapshot(snap)
	return snap
}

// Complete publishes the final state at stream completion. An empty store
// is reported with OnNoResults instead of an empty snapshot. It returns
// false in that case.
func (p *Publisher) Complete(store *aggregate.Store) bool {
	if store.IsEmpty() {
		p.logger.Debug("stream completed without results")
		p.presenter.OnNoResults()
		return false
	}
	p.Publish(store)
	return true
}

// Presenter returns the presenter publications go to.
func (p *Publisher) Presenter() Presenter {
	return p.presenter
}

// Published returns how many snapshots were sent.
func (p *Publisher) Published() int {
	return p.published
}

// Last returns the most recent snapshot sent. It is the zero snapshot
// before the first publication.
func (p *Publisher) Last() aggregate.Snapshot {
	return p.last
}
