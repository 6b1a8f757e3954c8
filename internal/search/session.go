package search

import (
	"context"
	"sync"

	"github.com/nao1215/imagefinder/internal/snapshot"
)

// Session runs searches one at a time against one source and presenter.
type Session struct {
	source    Source
	presenter snapshot.Presenter
	opts      []Option

	mu      sync.Mutex
	current *Operation
}

// NewSession creates a Session. opts apply to every operation it starts.
func NewSession(source Source, presenter snapshot.Presenter, opts ...Option) *Session {
	return &Session{
		source:    source,
		presenter: presenter,
		opts:      opts,
	}
}

// Start cancels the current operation, waits for it to finish, and prepares
// a new one for req. The new operation is not running until its Run is
// called. An invalid request leaves the previous operation untouched.
func (s *Session) Start(req Request) (*Operation, error) {
	op, err := NewOperation(req, s.source, s.presenter, s.opts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.current
	s.current = op
	s.mu.Unlock()

	if prev != nil {
		prev.Cancel()
		<-prev.Done()
	}
	return op, nil
}

// Run starts a new operation for req and runs it to completion.
func (s *Session) Run(ctx context.Context, req Request) (*Operation, error) {
	op, err := s.Start(req)
	if err != nil {
		return nil, err
	}
	return op, op.Run(ctx)
}

// Current returns the most recently started operation, or nil.
func (s *Session) Current() *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Cancel abandons the current operation, if any.
func (s *Session) Cancel() {
	if op := s.Current(); op != nil {
		op.Cancel()
	}
}
