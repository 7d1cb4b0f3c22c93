// Package driver abstracts the browser-driving capability the rest of the
// system consumes: navigation, typed element probing, low-level input,
// screenshots, scoped network-response capture, and session-state
// persistence. The rod-backed implementation lives in rod.go; everything
// above this package branches on ProbeResult variants instead of poking at
// the page directly.
package driver

import (
	"context"
	"time"
)

// Element is a handle to something found on the page.
type Element interface {
	Text() (string, error)
	Attribute(name string) (*string, error)
	Visible() (bool, error)
	Disabled() (bool, error)
	Focus() error
	Click() error
	Point() (x, y float64, err error)
	ScrollIntoView() error
}

// ProbeResult is the typed outcome of one element probe:
// Found(handle), NotFound, or Ambiguous(n).
type ProbeResult struct {
	el Element
	n  int
}

// Found wraps a single visible match.
func Found(el Element) ProbeResult { return ProbeResult{el: el, n: 1} }

// NotFound reports no visible match.
func NotFound() ProbeResult { return ProbeResult{} }

// Ambiguous reports n > 1 visible matches.
func Ambiguous(n int) ProbeResult { return ProbeResult{n: n} }

// Element returns the handle when the probe found exactly one visible match.
func (r ProbeResult) Element() (Element, bool) { return r.el, r.el != nil }

// Ambiguous returns the match count when more than one element was visible.
func (r ProbeResult) Ambiguous() (int, bool) { return r.n, r.n > 1 }

// IsNotFound reports no visible match.
func (r ProbeResult) IsNotFound() bool { return r.el == nil && r.n == 0 }

// Page is one driven browser page.
type Page interface {
	Navigate(ctx context.Context, url string) error

	// Probe checks for sel right now, without waiting.
	Probe(sel string) (ProbeResult, error)

	// WaitVisible waits up to timeout for a visible match.
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) (Element, error)

	// Elements returns all current matches, visible or not.
	Elements(sel string) ([]Element, error)

	// Raw input. Text lands in the focused element.
	InsertText(text string) error
	Backspace() error
	MouseMove(x, y float64) error
	Viewport() (w, h int)

	// Screenshot writes a PNG diagnostic artifact.
	Screenshot(path string) error

	// OpenCapture observes outbound network responses, keeping the first
	// URL accepted by match. The caller must Close it.
	OpenCapture(match func(url string) bool) (*Capture, error)

	URL() string
}

// Session is a per-account page plus persisted login state.
type Session interface {
	Page
	SaveState() error
	RestoreState() error
	HasState() bool
	Close() error
}
