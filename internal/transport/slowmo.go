package transport

import "time"

// WithSlowMo wraps a channel so that every outbound send and every
// inbound dispatch is delayed by the given amount. This exists to make
// race conditions in the session layer reproducible; ordering is
// preserved exactly because both directions funnel through a single
// goroutine or a serialized Send path.
func WithSlowMo(inner Channel, delay time.Duration) Channel {
	if delay <= 0 {
		return inner
	}

	c := &slowMoChannel{
		inner: inner,
		delay: delay,
		msgs:  make(chan []byte, 64),
	}
	go c.dispatchLoop()
	return c
}

type slowMoChannel struct {
	inner Channel
	delay time.Duration
	msgs  chan []byte
}

// Send delays, then forwards. Callers already serialize sends through
// the inner channel's write path, so the delay cannot reorder.
func (c *slowMoChannel) Send(msg []byte) error {
	time.Sleep(c.delay)
	return c.inner.Send(msg)
}

func (c *slowMoChannel) Messages() <-chan []byte {
	return c.msgs
}

func (c *slowMoChannel) Errors() <-chan error {
	return c.inner.Errors()
}

func (c *slowMoChannel) Close() error {
	return c.inner.Close()
}

// dispatchLoop forwards inbound messages one at a time, delaying each.
// A single goroutine guarantees delivery order matches arrival order.
func (c *slowMoChannel) dispatchLoop() {
	defer close(c.msgs)

	for msg := range c.inner.Messages() {
		time.Sleep(c.delay)
		c.msgs <- msg
	}
}
