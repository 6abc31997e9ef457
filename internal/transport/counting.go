package transport

// WithCounters wraps a channel so that every outbound send and every
// inbound dispatch invokes a callback. Callbacks must be fast and must
// not block; they run on the transport's dispatch path.
func WithCounters(inner Channel, onSent, onReceived func()) Channel {
	if onSent == nil && onReceived == nil {
		return inner
	}

	c := &countingChannel{
		inner:      inner,
		onSent:     onSent,
		onReceived: onReceived,
		msgs:       make(chan []byte, 64),
	}
	go c.dispatchLoop()
	return c
}

type countingChannel struct {
	inner      Channel
	onSent     func()
	onReceived func()
	msgs       chan []byte
}

func (c *countingChannel) Send(msg []byte) error {
	err := c.inner.Send(msg)
	if err == nil && c.onSent != nil {
		c.onSent()
	}
	return err
}

func (c *countingChannel) Messages() <-chan []byte {
	return c.msgs
}

func (c *countingChannel) Errors() <-chan error {
	return c.inner.Errors()
}

func (c *countingChannel) Close() error {
	return c.inner.Close()
}

// dispatchLoop forwards inbound messages one at a time so that the
// count matches delivery order.
func (c *countingChannel) dispatchLoop() {
	defer close(c.msgs)

	for msg := range c.inner.Messages() {
		if c.onReceived != nil {
			c.onReceived()
		}
		c.msgs <- msg
	}
}
