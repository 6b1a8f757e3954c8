// Package snapshot publishes the aggregate to the presentation layer.
//
// Presenter is the only interface collaborators implement. Every
// publication carries the full current aggregate rather than a diff, so a
// presenter can redraw from scratch at any time.
package snapshot

import (
	"github.com/nao1215/imagefinder/internal/aggregate"
)

// Presenter receives the state of a search operation.
//
// Calls for one operation are made from a single goroutine, in order.
// OnTimeout, OnNetworkError, OnNoResults and OnBadStatus are terminal: at
// most one of them is called, and no OnSnapshot follows it.
type Presenter interface {
	// OnSnapshot is called after every merge that changed the aggregate
	// and once more when the stream completes.
	OnSnapshot(snap aggregate.Snapshot)

	// OnTimeout is called when the operation was inactive for too long.
	OnTimeout()

	// OnNetworkError is called when the transport failed.
	OnNetworkError(err error)

	// OnNoResults is called when the stream completed without any item.
	OnNoResults()

	// OnBadStatus is called when the service answered with a non-success
	// status.
	OnBadStatus(code int, statusText, body string)
}

// Funcs adapts plain functions to a Presenter. Nil fields are skipped.
type Funcs struct {
	Snapshot     func(aggregate.Snapshot)
	Timeout      func()
	NetworkError func(error)
	NoResults    func()
	BadStatus    func(code int, statusText, body string)
}

var _ Presenter = Funcs{}

// OnSnapshot implements Presenter.
func (f Funcs) OnSnapshot(snap aggregate.Snapshot) {
	if f.Snapshot != nil {
		f.Snapshot(snap)
	}
}

// OnTimeout implements Presenter.
func (f Funcs) OnTimeout() {
	if f.Timeout != nil {
		f.Timeout()
	}
}

// OnNetworkError implements Presenter.
func (f Funcs) OnNetworkError(err error) {
	if f.NetworkError != nil {
		f.NetworkError(err)
	}
}

// OnNoResults implements Presenter.
func (f Funcs) OnNoResults() {
	if f.NoResults != nil {
		f.NoResults()
	}
}

// OnBadStatus implements Presenter.
func (f Funcs) OnBadStatus(code int, statusText, body string) {
	if f.BadStatus != nil {
		f.BadStatus(code, statusText, body)
	}
}

// Multi fans every call out to several presenters in order.
type Multi []Presenter

var _ Presenter = Multi{}

// OnSnapshot implements Presenter.
func (m Multi) OnSnapshot(snap aggregate.Snapshot) {
	for _, p := range m {
		p.OnSnapshot(snap)
	}
}

// OnTimeout implements Presenter.
func (m Multi) OnTimeout() {
	for _, p := range m {
		p.OnTimeout()
	}
}

// OnNetworkError implements Presenter.
func (m Multi) OnNetworkError(err error) {
	for _, p := range m {
		p.OnNetworkError(err)
	}
}

// OnNoResults implements Presenter.
func (m Multi) OnNoResults() {
	for _, p := range m {
		p.OnNoResults()
	}
}

// OnBadStatus implements Presenter.
func (m Multi) OnBadStatus(code int, statusText, body string) {
	for _, p := range m {
		p.OnBadStatus(code, statusText, body)
	}
}
