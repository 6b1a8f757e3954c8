package render

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/imagefinder/internal/aggregate"
	"github.com/nao1215/imagefinder/internal/liveness"
	"github.com/nao1215/imagefinder/internal/search"
	"github.com/nao1215/imagefinder/internal/snapshot"
)

// NoResultsMessage is shown when a search completed without any image.
const NoResultsMessage = "No images found."

// Terminal is a snapshot.Presenter that reports progress and failures as
// plain text lines.
type Terminal struct {
	mu sync.Mutex

	out    io.Writer
	errOut io.Writer
	view   *View
	budget time.Duration

	// live redraws the whole tree on every snapshot instead of printing a
	// progress line.
	live bool

	last    aggregate.Snapshot
	updates int
}

var _ snapshot.Presenter = (*Terminal)(nil)

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithErrorOutput sends failure messages to w instead of the main output.
func WithErrorOutput(w io.Writer) TerminalOption {
	return func(t *Terminal) {
		t.errOut = w
	}
}

// WithView sets the view used for live redraws.
func WithView(v *View) TerminalOption {
	return func(t *Terminal) {
		t.view = v
	}
}

// WithBudget sets the inactivity budget quoted in the timeout message.
func WithBudget(d time.Duration) TerminalOption {
	return func(t *Terminal) {
		t.budget = d
	}
}

// WithLive redraws the full tree on every snapshot.
func WithLive(live bool) TerminalOption {
	return func(t *Terminal) {
		t.live = live
	}
}

// NewTerminal creates a Terminal writing to out.
func NewTerminal(out io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		out:    out,
		errOut: out,
		view:   NewView(),
		budget: liveness.DefaultBudget,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnSnapshot implements snapshot.Presenter.
func (t *Terminal) OnSnapshot(snap aggregate.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = snap
	t.updates++

	if t.live {
		fmt.Fprintf(t.out, "--- update %d ---\n", t.updates)
		_, _ = Render(t.out, snap, t.view)
		return
	}
	groups := len(snap.OrdinaryGroups())
	fmt.Fprintf(t.out, "found %s in %s\n", plural(snap.ItemCount(), "image"), plural(groups, "page"))
}

// OnTimeout implements snapshot.Presenter.
func (t *Terminal) OnTimeout() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.errOut, "Error: %s after %s of inactivity\n", search.ErrTimeout, search.FormatBudget(t.budget))
}

// OnNetworkError implements snapshot.Presenter.
func (t *Terminal) OnNetworkError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.errOut, "Error: network error: %v\n", err)
}

// OnNoResults implements snapshot.Presenter.
func (t *Terminal) OnNoResults() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, NoResultsMessage)
}

// OnBadStatus implements snapshot.Presenter.
func (t *Terminal) OnBadStatus(code int, statusText, body string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.errOut, "Error: %d %s\n", code, statusText)
	if body = strings.TrimSpace(body); body != "" {
		fmt.Fprintln(t.errOut, body)
	}
}

// Last returns the most recent snapshot and the number of snapshots seen.
func (t *Terminal) Last() (aggregate.Snapshot, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.updates
}
