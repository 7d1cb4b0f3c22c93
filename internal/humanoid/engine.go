// Package humanoid turns every browser interaction into a randomized,
// human-looking sequence: sampled delays, typo-and-correct typing, and
// jittery pointer paths. Nothing here has timing that repeats exactly.
//
// Every operation that sleeps or emits input is a suspension point: it checks
// the shared PauseGate first and blocks indefinitely while a pause is in
// effect.
package humanoid

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"engagemon/internal/config"
)

// Surface is the input surface the engine drives. Text lands in whatever
// element currently holds focus.
type Surface interface {
	InsertText(text string) error
	Backspace() error
	MouseMove(x, y float64) error
	Viewport() (w, h int)
}

// Target is something on the page the engine can aim at.
type Target interface {
	Focus() error
	Click() error
	Point() (x, y float64, err error)
}

// TypingOpts tunes one NaturalTyping call.
type TypingOpts struct {
	Delay       config.RangeMs
	TypoChance  float64
	NoticeDelay config.RangeMs
}

// Engine produces randomized interaction sequences against one surface.
type Engine struct {
	surface Surface
	gate    *PauseGate
	cfg     config.BehaviorConfig
	log     *zap.Logger
	rng     *rand.Rand
}

// New creates an engine with a time-seeded source.
func New(surface Surface, gate *PauseGate, cfg config.BehaviorConfig, log *zap.Logger) *Engine {
	return &Engine{
		surface: surface,
		gate:    gate,
		cfg:     cfg,
		log:     log,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the random source. Used by tests for determinism.
func (e *Engine) WithRand(rng *rand.Rand) *Engine {
	e.rng = rng
	return e
}

// RandomizedWait sleeps base plus a uniform sample from [0, variance].
// The resulting wait is always at least base.
func (e *Engine) RandomizedWait(ctx context.Context, base, variance time.Duration) error {
	return e.sleep(ctx, base+e.sampleUpTo(variance))
}

// RandomDelay sleeps a uniform sample from [min, max].
func (e *Engine) RandomDelay(ctx context.Context, min, max time.Duration) error {
	return e.sleep(ctx, e.sampleBetween(min, max))
}

// NaturalTyping types text into target one character at a time. With
// probability opts.TypoChance each character is first mistyped, noticed,
// deleted and retyped. Whatever the typo chance, the committed text always
// equals the input exactly.
func (e *Engine) NaturalTyping(ctx context.Context, target Target, text string, opts TypingOpts) error {
	if err := e.gate.Wait(ctx); err != nil {
		return err
	}
	if target != nil {
		if err := target.Focus(); err != nil {
			return err
		}
	}
	for _, r := range text {
		if e.rng.Float64() < opts.TypoChance {
			if err := e.surface.InsertText(string(e.typoFor(r))); err != nil {
				return err
			}
			if err := e.sleep(ctx, e.sampleBetween(opts.NoticeDelay.MinDuration(), opts.NoticeDelay.MaxDuration())); err != nil {
				return err
			}
			if err := e.surface.Backspace(); err != nil {
				return err
			}
			if err := e.sleep(ctx, e.sampleBetween(opts.Delay.MinDuration(), opts.Delay.MaxDuration())); err != nil {
				return err
			}
		}
		if err := e.surface.InsertText(string(r)); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.sampleBetween(opts.Delay.MinDuration(), opts.Delay.MaxDuration())); err != nil {
			return err
		}
	}
	return nil
}

// MoveMouseRandomly drifts the pointer to a random point through a few
// waypoints. Used as idle noise between meaningful actions.
func (e *Engine) MoveMouseRandomly(ctx context.Context) error {
	w, h := e.surface.Viewport()
	x := e.rng.Float64() * float64(w)
	y := e.rng.Float64() * float64(h)
	return e.moveAlong(ctx, x, y, 0)
}

// JitteryMovement approaches target through intermediate waypoints with small
// random offsets, ending at or near the target's point.
func (e *Engine) JitteryMovement(ctx context.Context, target Target) error {
	x, y, err := target.Point()
	if err != nil {
		return err
	}
	return e.moveAlong(ctx, x, y, e.cfg.MouseJitterPx/6)
}

// HesitateAndClick pauses briefly, approaches target with jitter, then
// commits the click. Fails only if the underlying click fails.
func (e *Engine) HesitateAndClick(ctx context.Context, target Target) error {
	if err := e.RandomDelay(ctx, e.cfg.PreClickPause.MinDuration(), e.cfg.PreClickPause.MaxDuration()); err != nil {
		return err
	}
	if err := e.JitteryMovement(ctx, target); err != nil {
		return err
	}
	if err := e.RandomDelay(ctx, 40*time.Millisecond, 160*time.Millisecond); err != nil {
		return err
	}
	return target.Click()
}

// moveAlong walks the pointer to (x, y) through sampled waypoints. finalOff
// bounds the random offset left on the terminal point.
func (e *Engine) moveAlong(ctx context.Context, x, y, finalOff float64) error {
	if err := e.gate.Wait(ctx); err != nil {
		return err
	}
	w, h := e.surface.Viewport()
	fromX := e.rng.Float64() * float64(w)
	fromY := e.rng.Float64() * float64(h)

	steps := e.cfg.MouseStepsMin
	if span := e.cfg.MouseStepsMax - e.cfg.MouseStepsMin; span > 0 {
		steps += e.rng.Intn(span + 1)
	}
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		px := fromX + (x-fromX)*t
		py := fromY + (y-fromY)*t
		if i < steps {
			px += (e.rng.Float64()*2 - 1) * e.cfg.MouseJitterPx
			py += (e.rng.Float64()*2 - 1) * e.cfg.MouseJitterPx
		} else if finalOff > 0 {
			px += (e.rng.Float64()*2 - 1) * finalOff
			py += (e.rng.Float64()*2 - 1) * finalOff
		}
		if err := e.surface.MouseMove(px, py); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.sampleBetween(15*time.Millisecond, 70*time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}

// sleep is the engine's single suspension primitive: re-checks the gate,
// then waits out d or the context, then re-checks the gate once more so a
// pause raised mid-sleep still takes effect before the next emission.
func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if err := e.gate.Wait(ctx); err != nil {
		return err
	}
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return e.gate.Wait(ctx)
}

// sampleUpTo returns a uniform sample from [0, max].
func (e *Engine) sampleUpTo(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(e.rng.Int63n(int64(max) + 1))
}

// sampleBetween returns a uniform sample from [min, max].
func (e *Engine) sampleBetween(min, max time.Duration) time.Duration {
	if max < min {
		max = min
	}
	return min + e.sampleUpTo(max-min)
}

// typoFor returns a plausible wrong character for r: a nearby letter for
// letters, a random digit for digits, otherwise a letter.
func (e *Engine) typoFor(r rune) rune {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		for {
			c := rune(letters[e.rng.Intn(len(letters))])
			if c != r && c != r+('a'-'A') {
				return c
			}
		}
	case r >= '0' && r <= '9':
		for {
			c := rune('0' + e.rng.Intn(10))
			if c != r {
				return c
			}
		}
	default:
		return rune(letters[e.rng.Intn(len(letters))])
	}
}
