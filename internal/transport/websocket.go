package transport

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// maxMessageSize bounds a single DevTools message. Screenshots and
// tracing payloads can be large.
const maxMessageSize = 256 * 1024 * 1024

// WebSocketChannel carries protocol messages over the browser's
// DevTools websocket endpoint.
type WebSocketChannel struct {
	url  string
	conn *websocket.Conn

	msgs chan []byte
	errs chan error
	done chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// DialWebSocket connects to the ws:// endpoint discovered from the
// browser and starts the read loop.
func DialWebSocket(ctx context.Context, url string) (*WebSocketChannel, error) {
	dialer := websocket.Dialer{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &ChannelError{Op: "dial " + url, Err: err}
	}
	conn.SetReadLimit(maxMessageSize)

	c := &WebSocketChannel{
		url:  url,
		conn: conn,
		msgs: make(chan []byte, 64),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// URL returns the websocket endpoint this channel is connected to.
func (c *WebSocketChannel) URL() string {
	return c.url
}

// Send writes one protocol message. Safe for concurrent use.
func (c *WebSocketChannel) Send(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return &ChannelError{Op: "send", Err: err}
	}
	return nil
}

// Messages implements Channel.
func (c *WebSocketChannel) Messages() <-chan []byte {
	return c.msgs
}

// Errors implements Channel.
func (c *WebSocketChannel) Errors() <-chan error {
	return c.errs
}

// Close shuts the websocket down and stops the read loop.
func (c *WebSocketChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *WebSocketChannel) readLoop() {
	defer close(c.msgs)

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Closed locally, not an error.
			default:
				select {
				case c.errs <- &ChannelError{Op: "read", Err: err}:
				default:
				}
			}
			return
		}

		select {
		case c.msgs <- msg:
		case <-c.done:
			return
		}
	}
}
