package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nao1215/imagefinder/internal/aggregate"
	"github.com/nao1215/imagefinder/internal/liveness"
	"github.com/nao1215/imagefinder/internal/pipeline"
	"github.com/nao1215/imagefinder/internal/snapshot"
	"github.com/nao1215/imagefinder/internal/stream"
	"github.com/nao1215/imagefinder/internal/transport"
)

// Source starts the response stream for a query. The returned channel must
// be closed once the stream ends or ctx is cancelled.
// *transport.Client implements Source.
type Source interface {
	Stream(ctx context.Context, q transport.Query) <-chan transport.Event
}

// Option configures an Operation.
type Option func(*settings)

type settings struct {
	budget time.Duration
	clock  liveness.Clock
	logger *slog.Logger
}

// WithBudget sets the inactivity window of the liveness supervisor.
func WithBudget(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.budget = d
		}
	}
}

// WithClock sets the clock of the liveness supervisor.
func WithClock(c liveness.Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func newSettings(opts []Option) settings {
	s := settings{budget: liveness.DefaultBudget}
	for _, opt := range opts {
		opt(&s)
	}
	if s.clock == nil {
		s.clock = liveness.SystemClock()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Operation is one search from request to terminal outcome.
type Operation struct {
	req       Request
	source    Source
	presenter snapshot.Presenter

	decoder    *stream.Decoder
	store      *aggregate.Store
	publisher  *snapshot.Publisher
	pipeline   *pipeline.Pipeline
	supervisor *liveness.Supervisor

	settings settings
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOperation validates req and prepares an operation. Nothing is sent
// until Run.
func NewOperation(req Request, source Source, presenter snapshot.Presenter, opts ...Option) (*Operation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s := newSettings(opts)
	logger := s.logger.With("target", req.URL)

	o := &Operation{
		req:      req,
		source:   source,
		settings: s,
		logger:   logger,
		state:    Pending,
		done:     make(chan struct{}),
	}
	o.decoder = stream.NewDecoder(stream.WithLogger(logger))
	o.store = aggregate.NewStore()
	o.publisher = snapshot.NewPublisher(presenter, snapshot.WithLogger(logger))
	o.presenter = o.publisher.Presenter()
	o.pipeline = pipeline.Default(o.decoder, o.store, o.publisher, pipeline.WithLogger(logger))
	o.supervisor = liveness.New(
		liveness.WithBudget(s.budget),
		liveness.WithClock(s.clock),
		liveness.WithLogger(logger),
	)
	return o, nil
}

// Request returns the request of the operation.
func (o *Operation) Request() Request {
	return o.req
}

// State returns the current lifecycle state.
func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Done returns a channel closed when the operation reaches a terminal state.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Err returns the terminal error, or nil while running and on success.
func (o *Operation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Cancel abandons the operation. It is safe to call at any time, including
// after the operation finished.
func (o *Operation) Cancel() {
	o.mu.Lock()
	if o.state == Pending {
		o.finishLocked(Cancelled, context.Canceled)
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Result returns the final aggregate. It must only be called after Done is
// closed. Fatal outcomes discard the aggregate, so it is empty for them.
func (o *Operation) Result() aggregate.Snapshot {
	<-o.done
	return o.store.Snapshot()
}

// Stats returns decoding and publication counters.
func (o *Operation) Stats() Stats {
	<-o.done
	records, discarded := o.decoder.Stats()
	return Stats{
		Records:      records,
		Discarded:    discarded,
		Publications: o.publisher.Published(),
		Merges:       o.store.Merges(),
	}
}

// Stats summarizes a finished operation.
type Stats struct {
	Records      int
	Discarded    int
	Publications int
	Merges       int
}

// Run sends the request and processes the stream until a terminal state.
//
// It returns nil on completion with results, ErrNoResults, an error
// wrapping ErrTimeout or ErrNetwork, a *StatusError, or context.Canceled.
// The presenter is notified before Run returns.
func (o *Operation) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	switch {
	case o.state == Cancelled:
		o.mu.Unlock()
		return context.Canceled
	case o.state != Pending:
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.state = Streaming
	o.cancel = cancel
	o.mu.Unlock()

	o.logger.Info("search started",
		"recursive", o.req.Recursive,
		"depth", o.req.Depth,
	)

	o.supervisor.Start()
	events := o.source.Stream(ctx, o.req.Query())

	for {
		// A passed deadline wins over events that are ready at the same time.
		select {
		case <-o.supervisor.Expired():
			return o.timeout(cancel)
		default:
		}

		select {
		case <-o.supervisor.Expired():
			return o.timeout(cancel)

		case <-ctx.Done():
			return o.cancelled()

		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return o.cancelled()
				}
				return o.networkError(fmt.Errorf("%w: stream closed without a final status", ErrNetwork))
			}
			if done, err := o.handle(ctx, ev); done {
				return err
			}
		}
	}
}

// handle processes one transport event. It reports whether the operation
// reached a terminal state.
func (o *Operation) handle(ctx context.Context, ev transport.Event) (bool, error) {
	switch ev := ev.(type) {
	case transport.Delivery:
		d := &pipeline.Delivery{Text: ev.Text}
		if err := o.pipeline.Execute(ctx, d); err != nil {
			return true, o.cancelled()
		}
		if d.Merge.Changed() {
			o.supervisor.Touch()
		}
		return false, nil

	case transport.Terminal:
		o.supervisor.Stop()
		if !ev.OK() {
			return true, o.badStatus(ev)
		}
		return true, o.complete()

	case transport.Failure:
		return true, o.networkError(fmt.Errorf("%w: %w", ErrNetwork, ev.Err))

	default:
		o.logger.Debug("ignoring unknown transport event", "type", fmt.Sprintf("%T", ev))
		return false, nil
	}
}

func (o *Operation) complete() error {
	if !o.publisher.Complete(o.store) {
		return o.finish(NoResults, ErrNoResults)
	}
	records, discarded := o.decoder.Stats()
	o.logger.Info("search completed",
		"items", o.store.ItemCount(),
		"groups", o.store.GroupCount(),
		"records", records,
		"discarded", discarded,
	)
	return o.finish(Completed, nil)
}

func (o *Operation) timeout(cancel context.CancelFunc) error {
	cancel()
	err := fmt.Errorf("%w after %s of inactivity", ErrTimeout, FormatBudget(o.settings.budget))
	o.logger.Warn("search timed out", "budget", o.settings.budget)
	o.presenter.OnTimeout()
	o.store.Reset()
	return o.finish(TimedOut, err)
}

func (o *Operation) badStatus(t transport.Terminal) error {
	o.logger.Warn("search failed with status",
		"status", t.Status,
		"status_text", t.StatusText,
	)
	o.presenter.OnBadStatus(t.Status, t.StatusText, t.Body)
	o.store.Reset()
	return o.finish(BadStatus, &StatusError{Code: t.Status, StatusText: t.StatusText, Body: t.Body})
}

func (o *Operation) networkError(err error) error {
	o.supervisor.Stop()
	o.logger.Warn("search failed", "error", err)
	o.presenter.OnNetworkError(err)
	o.store.Reset()
	return o.finish(NetworkError, err)
}

func (o *Operation) cancelled() error {
	o.supervisor.Reset()
	o.logger.Debug("search cancelled")
	o.store.Reset()
	return o.finish(Cancelled, context.Canceled)
}

// finish records the terminal state and returns err.
func (o *Operation) finish(state State, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finishLocked(state, err)
	return err
}

func (o *Operation) finishLocked(state State, err error) {
	if !canTransition(o.state, state) {
		return
	}
	o.state = state
	o.err = err
	close(o.done)
}

// FormatBudget renders a liveness budget the way it is shown to users,
// for example "17.5 seconds".
func FormatBudget(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + " seconds"
}
