package humanoid

import (
	"context"
	"sync"
)

// PauseGate is the cooperative pause token shared by every behavior engine in
// the process. It is checked at each suspension point; while requested, all
// engines block until an operator clears it. There is no automatic resume.
type PauseGate struct {
	mu     sync.Mutex
	resume chan struct{} // nil = running; non-nil = paused until closed
}

// NewPauseGate returns a gate in the running state.
func NewPauseGate() *PauseGate {
	return &PauseGate{}
}

// Request pauses all engines at their next suspension point. Idempotent.
func (g *PauseGate) Request() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resume == nil {
		g.resume = make(chan struct{})
	}
}

// Clear resumes all blocked engines. Idempotent.
func (g *PauseGate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resume != nil {
		close(g.resume)
		g.resume = nil
	}
}

// Requested reports whether a pause is currently in effect.
func (g *PauseGate) Requested() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resume != nil
}

// Wait blocks while the gate is paused. Returns early with the context error
// if ctx is cancelled; pausing never outlives the run itself.
func (g *PauseGate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		ch := g.resume
		g.mu.Unlock()
		if ch == nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
