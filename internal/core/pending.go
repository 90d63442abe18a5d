package core

import "sync"

// nextCell caches at most one prepared site and tracks at most one in-flight
// background preparation. The mutex only ever guards pointer swaps; all
// provisioning I/O happens outside it, so a slow backend can never block an
// Acquire that just wants to check the cache.
//
// site and prep are mutually exclusive: a cached site means no preparation
// is running, and a running preparation means the cell is empty.
type nextCell struct {
	mu   sync.Mutex
	site *Site
	prep chan struct{}
}

// poll removes and returns the cached site if present. Otherwise it returns
// the channel of the in-flight preparation, which is closed when the
// preparation finishes, or nil if nothing is running.
func (c *nextCell) poll() (*Site, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.site != nil {
		s := c.site
		c.site = nil
		return s, nil
	}
	return nil, c.prep
}

// take removes and returns the cached site, or nil.
func (c *nextCell) take() *Site {
	s, _ := c.poll()
	return s
}

// inFlight returns the channel of the running preparation, or nil.
func (c *nextCell) inFlight() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prep
}

// beginPrepare claims the right to run one background preparation. It
// reports false when the cell already holds a site or a preparation is
// already running, which is how concurrent triggers coalesce into one.
func (c *nextCell) beginPrepare() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.site != nil || c.prep != nil {
		return false
	}
	c.prep = make(chan struct{})
	return true
}

// complete finishes the preparation claimed by beginPrepare, storing the
// prepared site (nil when the preparation failed or was skipped) and waking
// every goroutine blocked on the in-flight channel.
func (c *nextCell) complete(s *Site) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prep == nil {
		panic("sitepool: nextCell.complete called without beginPrepare")
	}
	if c.site != nil {
		panic("sitepool: nextCell already holds a prepared site")
	}

	done := c.prep
	c.prep = nil
	c.site = s
	close(done)
}
