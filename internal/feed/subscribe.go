package feed

// Subscribe returns a channel that receives a snapshot after every state
// change. The channel holds one snapshot; a slow reader skips intermediate
// states and always sees the latest. The channel is closed by Close.
func (c *Controller) Subscribe() <-chan State {
	ch := make(chan State, 1)

	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.closed {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// publish sends the current snapshot to every subscriber without blocking.
// The snapshot is taken under subMu so concurrent publishers cannot deliver
// an older state after a newer one.
func (c *Controller) publish() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.closed || len(c.subs) == 0 {
		return
	}

	c.mu.Lock()
	s := c.snapshotLocked()
	c.mu.Unlock()

	for _, ch := range c.subs {
		select {
		case <-ch: // replace an unread snapshot
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Close closes every subscription channel. Operations still work afterwards
// but no longer notify anyone.
func (c *Controller) Close() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}
