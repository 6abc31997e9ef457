package transport

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// PipeChannel carries protocol messages over two dedicated process
// streams (the browser's fd 3 for commands in, fd 4 for responses out,
// reserved exclusively for control traffic). Messages are framed with
// a trailing NUL byte, matching Chromium's --remote-debugging-pipe
// wire format.
type PipeChannel struct {
	w io.WriteCloser // browser reads commands from here
	r io.ReadCloser  // browser writes responses here

	msgs chan []byte
	errs chan error
	done chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewPipeChannel wraps the parent-side ends of the two control pipes
// and starts the read loop. Unlike the websocket variant there is no
// readiness handshake: the pipe is usable as soon as the process
// starts.
func NewPipeChannel(w io.WriteCloser, r io.ReadCloser) *PipeChannel {
	c := &PipeChannel{
		w:    w,
		r:    r,
		msgs: make(chan []byte, 64),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Send writes one NUL-terminated protocol message.
func (c *PipeChannel) Send(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.w.Write(msg); err != nil {
		return &ChannelError{Op: "send", Err: err}
	}
	if _, err := c.w.Write([]byte{0}); err != nil {
		return &ChannelError{Op: "send", Err: err}
	}
	return nil
}

// Messages implements Channel.
func (c *PipeChannel) Messages() <-chan []byte {
	return c.msgs
}

// Errors implements Channel.
func (c *PipeChannel) Errors() <-chan error {
	return c.errs
}

// Close closes both pipe ends and stops the read loop.
func (c *PipeChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		werr := c.w.Close()
		rerr := c.r.Close()
		if werr != nil {
			c.closeErr = werr
		} else {
			c.closeErr = rerr
		}
	})
	return c.closeErr
}

func (c *PipeChannel) readLoop() {
	defer close(c.msgs)

	reader := bufio.NewReaderSize(c.r, 64*1024)
	for {
		raw, err := reader.ReadBytes(0)
		if len(raw) > 0 {
			msg := bytes.TrimSuffix(raw, []byte{0})
			if len(msg) > 0 {
				select {
				case c.msgs <- msg:
				case <-c.done:
					return
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case <-c.done:
				default:
					select {
					case c.errs <- &ChannelError{Op: "read", Err: err}:
					default:
					}
				}
			}
			return
		}
	}
}
