// Package transport defines the message-framing abstraction over a live socket
// connection between hostbridge and its backend. The transport serializes and
// deserializes protocol messages, delivers inbound messages to a registered
// handler, and signals close and error conditions. It holds no protocol state
// beyond the socket itself.
package transport

// file: internal/transport/transport.go

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/protocol"
)

// MaxMessageSize is the maximum allowed size for a single message in bytes.
// Oversized inbound messages are routed to the error callback; oversized
// outbound messages fail the send.
const MaxMessageSize = 1024 * 1024 // 1MB.

// Conn abstracts the underlying socket connection. Implementations must allow
// one concurrent reader and serialize their own writes.
type Conn interface {
	// ReadMessage blocks until a complete text message arrives or the
	// connection fails.
	ReadMessage() ([]byte, error)

	// WriteMessage writes a complete text message.
	WriteMessage(data []byte) error

	// Close closes the connection. Further reads and writes fail.
	Close() error
}

// MessageHandler receives each successfully parsed inbound message.
type MessageHandler func(msg *protocol.Message)

// CloseHandler is invoked once when the connection terminates. cause is the
// read error that ended the loop; IsClosedError reports whether it was an
// orderly close rather than a socket failure.
type CloseHandler func(cause error)

// ErrorHandler receives parse failures and read errors that do not terminate
// the connection.
type ErrorHandler func(err error)

// Transport frames protocol messages over a Conn. Callbacks are single-slot:
// the last registration wins. Register callbacks before calling Start.
type Transport struct {
	conn   Conn
	logger logging.Logger

	mu        sync.RWMutex
	onMessage MessageHandler
	onClose   CloseHandler
	onError   ErrorHandler
	started   bool
	closed    bool

	writeMu sync.Mutex
	done    chan struct{}
}

// New creates a Transport over an already-open connection.
func New(conn Conn, logger logging.Logger) *Transport {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Transport{
		conn:   conn,
		logger: logger.WithField("component", "transport"),
		done:   make(chan struct{}),
	}
}

// OnMessage registers the inbound message callback. Last registration wins.
func (t *Transport) OnMessage(h MessageHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMessage = h
}

// OnClose registers the close callback. Last registration wins.
func (t *Transport) OnClose(h CloseHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClose = h
}

// OnError registers the error callback. Last registration wins.
func (t *Transport) OnError(h ErrorHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = h
}

// Start begins the read loop. It fails if the underlying socket is not open
// or the transport was already started or closed.
func (t *Transport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return NewNotOpenError("start")
	}
	if t.closed {
		return NewClosedError("start")
	}
	if t.started {
		return NewError(ErrGeneric, "transport already started", nil)
	}
	t.started = true

	go t.readLoop()
	return nil
}

// Send serializes the message to text and writes it. It fails if the socket
// is not open.
func (t *Transport) Send(msg *protocol.Message) error {
	t.mu.RLock()
	if t.conn == nil {
		t.mu.RUnlock()
		return NewNotOpenError("send")
	}
	if t.closed {
		t.mu.RUnlock()
		return NewClosedError("send")
	}
	t.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return NewError(ErrGeneric, "failed to serialize message", err)
	}
	if len(data) > MaxMessageSize {
		return NewMessageSizeError(len(data), MaxMessageSize)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(data); err != nil {
		return NewError(ErrGeneric, "failed to write message", err)
	}
	t.logger.Debug("Sent message.", "size", len(data))
	return nil
}

// Close closes the socket. It is idempotent: closing an already-closed
// transport is a no-op.
func (t *Transport) Close(_ context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.logger.Info("Closing transport.")
	if err := t.conn.Close(); err != nil {
		return NewError(ErrTransportClosed, "failed to close underlying connection", err)
	}
	return nil
}

// Done is closed when the read loop terminates.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// readLoop reads inbound text, parses it as a protocol message, and delivers
// it to the message callback. Parse failures go to the error callback without
// terminating the connection; read failures terminate the loop and fire the
// close callback exactly once.
func (t *Transport) readLoop() {
	defer close(t.done)

	for {
		data, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			wasClosed := t.closed
			t.closed = true
			t.mu.Unlock()

			if !wasClosed {
				t.logger.Info("Connection terminated.", "error", err)
			}
			t.fireClose(err)
			return
		}

		if len(data) > MaxMessageSize {
			t.fireError(NewMessageSizeError(len(data), MaxMessageSize))
			continue
		}

		msg, parseErr := protocol.Parse(data)
		if parseErr != nil {
			t.logger.Warn("Discarding unparseable inbound message.", "error", parseErr)
			t.fireError(NewParseError(data, parseErr))
			continue
		}

		t.logger.Debug("Received message.", "method", msg.Method, "size", len(data))
		t.fireMessage(msg)
	}
}

func (t *Transport) fireMessage(msg *protocol.Message) {
	t.mu.RLock()
	h := t.onMessage
	t.mu.RUnlock()
	if h != nil {
		h(msg)
	}
}

func (t *Transport) fireClose(cause error) {
	t.mu.RLock()
	h := t.onClose
	t.mu.RUnlock()
	if h != nil {
		h(cause)
	}
}

func (t *Transport) fireError(err error) {
	t.mu.RLock()
	h := t.onError
	t.mu.RUnlock()
	if h != nil {
		h(err)
	}
}
