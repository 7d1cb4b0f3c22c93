package driver

import (
	"context"
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

// Capture is a scoped network-response observation window. It keeps the URL
// of the first response its opener accepted and ignores everything after;
// Close tears the observation down deterministically regardless of how the
// surrounding task exits.
type Capture struct {
	stop func()

	mu  sync.Mutex
	url string
	hit bool
}

// NewCapture builds an empty capture. stop, if non-nil, is invoked once on
// Close. Session implementations feed matched responses through Offer.
func NewCapture(stop func()) *Capture {
	return &Capture{stop: stop}
}

// Offer records url into the single-result slot if it is still empty.
func (c *Capture) Offer(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hit {
		c.url = url
		c.hit = true
	}
}

// First returns the first matched URL, if any arrived so far.
func (c *Capture) First() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url, c.hit
}

// Close stops the observation. Idempotent.
func (c *Capture) Close() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

// OpenCapture starts observing this session's network responses, keeping the
// first URL accepted by match.
func (s *RodSession) OpenCapture(match func(url string) bool) (*Capture, error) {
	if err := (proto.NetworkEnable{}).Call(s.page); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := NewCapture(cancel)

	wait := s.page.Context(ctx).EachEvent(func(ev *proto.NetworkResponseReceived) {
		if ev.Response == nil {
			return
		}
		if match(ev.Response.URL) {
			c.Offer(ev.Response.URL)
		}
	})
	go wait()
	return c, nil
}
