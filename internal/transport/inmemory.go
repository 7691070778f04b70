// file: internal/transport/inmemory.go
package transport

import (
	"sync"
)

// InMemoryConn implements the Conn interface using in-memory channels.
// It is designed for testing, allowing two connection ends to communicate
// without actual I/O.
type InMemoryConn struct {
	incoming chan []byte
	outgoing chan []byte

	closed    bool
	closeOnce sync.Once
	closeCh   chan struct{}
	mu        sync.RWMutex
}

// InMemoryConnPair contains a pair of linked InMemoryConn instances.
// Messages written to one can be read from the other.
type InMemoryConnPair struct {
	ClientConn *InMemoryConn
	ServerConn *InMemoryConn
}

// NewInMemoryConnPair creates a pair of connected InMemoryConn instances.
// Buffered channels avoid immediate blocking in tests.
func NewInMemoryConnPair() *InMemoryConnPair {
	clientToServer := make(chan []byte, 100)
	serverToClient := make(chan []byte, 100)

	return &InMemoryConnPair{
		ClientConn: &InMemoryConn{
			incoming: serverToClient,
			outgoing: clientToServer,
			closeCh:  make(chan struct{}),
		},
		ServerConn: &InMemoryConn{
			incoming: clientToServer,
			outgoing: serverToClient,
			closeCh:  make(chan struct{}),
		},
	}
}

// ReadMessage implements Conn. It blocks until a message arrives or the
// connection is closed.
func (c *InMemoryConn) ReadMessage() ([]byte, error) {
	select {
	case <-c.closeCh:
		return nil, NewClosedError("read")
	case msg, ok := <-c.incoming:
		if !ok {
			return nil, NewClosedError("read")
		}
		return msg, nil
	}
}

// WriteMessage implements Conn. The read lock is held across the send so a
// concurrent Close cannot close the outgoing channel mid-write.
func (c *InMemoryConn) WriteMessage(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return NewClosedError("write")
	}

	select {
	case <-c.closeCh:
		return NewClosedError("write")
	case c.outgoing <- data:
		return nil
	}
}

// Close implements Conn. It unblocks pending reads and writes on this end and
// closes the outgoing channel so the peer's ReadMessage observes the close.
func (c *InMemoryConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.closeCh)
		close(c.outgoing)
		c.mu.Unlock()
	})
	return nil
}
