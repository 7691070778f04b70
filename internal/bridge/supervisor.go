// Package bridge maintains the outbound connection to the backend. The
// Supervisor owns the connection state machine: it dials, attaches a fresh
// protocol session to each connection, and schedules reconnect attempts with
// a fixed backoff until stopped.
package bridge

// file: internal/bridge/supervisor.go

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/hostbridge/hostbridge/internal/fsm"
	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/mcp"
	"github.com/hostbridge/hostbridge/internal/mcperrors"
	"github.com/hostbridge/hostbridge/internal/transport"
)

// Connection states.
const (
	StateDisconnected fsm.State = "disconnected"
	StateConnecting   fsm.State = "connecting"
	StateConnected    fsm.State = "connected"
)

// Connection events.
const (
	EventConnect    fsm.Event = "connect"
	EventConnected  fsm.Event = "connected"
	EventDisconnect fsm.Event = "disconnect"
)

func connectionTransitions() []fsm.Transition {
	return []fsm.Transition{
		{From: []fsm.State{StateDisconnected}, To: StateConnecting, Event: EventConnect},
		{From: []fsm.State{StateConnecting}, To: StateConnected, Event: EventConnected},
		{From: []fsm.State{StateConnecting, StateConnected}, To: StateDisconnected, Event: EventDisconnect},
	}
}

// Dialer opens the socket to the backend.
type Dialer func(ctx context.Context) (transport.Conn, error)

// ServerFactory builds a fresh protocol session for one connection.
type ServerFactory func() (*mcp.Server, error)

// Supervisor drives the connection lifecycle. At most one connection attempt
// is in flight at any time and at most one reconnect timer is outstanding;
// scheduling a new retry cancels a previously scheduled one. Stop is
// permanent: it cancels the pending retry, closes the active socket, and no
// further attempts follow.
type Supervisor struct {
	dial      Dialer
	newServer ServerFactory
	delay     time.Duration
	machine   *fsm.FSM
	logger    logging.Logger

	mu        sync.Mutex
	timer     *time.Timer
	active    *transport.Transport
	stopped   bool
	onConnect func()
	onDrop    func()
	onError   func(error)
}

// NewSupervisor creates a Supervisor that dials with dial and attaches a
// session from newServer to every connection, retrying every delay after a
// drop.
func NewSupervisor(dial Dialer, newServer ServerFactory, delay time.Duration, logger logging.Logger) (*Supervisor, error) {
	if dial == nil {
		return nil, errors.New("supervisor requires a dialer")
	}
	if newServer == nil {
		return nil, errors.New("supervisor requires a server factory")
	}
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	logger = logger.WithField("component", "bridge")

	machine, err := fsm.New(StateDisconnected, connectionTransitions(), logger)
	if err != nil {
		return nil, err
	}
	return &Supervisor{
		dial:      dial,
		newServer: newServer,
		delay:     delay,
		machine:   machine,
		logger:    logger,
	}, nil
}

// OnConnected registers the connected observer. Last registration wins.
func (s *Supervisor) OnConnected(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnect = fn
}

// OnDisconnected registers the disconnected observer. Last registration wins.
func (s *Supervisor) OnDisconnected(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDrop = fn
}

// OnError registers the error observer. Last registration wins.
func (s *Supervisor) OnError(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// State returns the current connection state.
func (s *Supervisor) State() fsm.State {
	return s.machine.Current()
}

// Start makes the initial connection attempt. A failure is returned to the
// caller without scheduling a retry; retries begin only after an established
// connection drops. Calling Start while Connecting or Connected is rejected
// rather than spawning a parallel attempt.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return errors.New("supervisor is stopped")
	}
	s.mu.Unlock()

	if !s.machine.Can(EventConnect) {
		return errors.Newf("connection attempt already in progress: %s", s.machine.Current())
	}
	if err := s.attempt(ctx); err != nil {
		s.fireError(err)
		return err
	}
	return nil
}

// attempt performs one full connection attempt: dial, attach a fresh session,
// start the transport.
func (s *Supervisor) attempt(ctx context.Context) error {
	if err := s.machine.Fire(ctx, EventConnect, nil); err != nil {
		return errors.Wrap(err, "connection attempt rejected")
	}

	conn, err := s.dial(ctx)
	if err != nil {
		_ = s.machine.Fire(ctx, EventDisconnect, nil)
		return errors.Wrap(err, "failed to dial backend")
	}

	server, err := s.newServer()
	if err != nil {
		_ = conn.Close()
		_ = s.machine.Fire(ctx, EventDisconnect, nil)
		return errors.Wrap(err, "failed to build protocol session")
	}

	t := transport.New(conn, s.logger)
	server.Attach(ctx, t)
	t.OnClose(func(cause error) {
		s.handleDrop(ctx, cause)
	})

	if err := t.Start(); err != nil {
		_ = conn.Close()
		_ = s.machine.Fire(ctx, EventDisconnect, nil)
		return errors.Wrap(err, "failed to start transport")
	}

	s.mu.Lock()
	s.active = t
	s.mu.Unlock()

	if err := s.machine.Fire(ctx, EventConnected, nil); err != nil {
		return errors.Wrap(err, "failed to mark connection established")
	}
	s.logger.Info("Connected to backend.")
	s.fireConnected()
	return nil
}

// handleDrop reacts to a socket close: mark Disconnected, notify, and
// schedule exactly one reconnect attempt. An abnormal cause also surfaces
// through the error callback.
func (s *Supervisor) handleDrop(ctx context.Context, cause error) {
	if err := s.machine.Fire(ctx, EventDisconnect, nil); err != nil {
		// A drop arriving after Stop already disconnected is not news.
		s.logger.Debug("Ignoring redundant drop.", "state", s.machine.Current())
		return
	}
	if cause != nil && !transport.IsClosedError(cause) {
		s.logger.Warn("Disconnected from backend.", "error", cause)
		s.fireError(mcperrors.NewTransportError("connection lost", cause))
	} else {
		s.logger.Warn("Disconnected from backend.")
	}
	s.fireDropped()
	s.scheduleRetry(ctx)
}

// scheduleRetry arms the single reconnect timer, replacing any previously
// scheduled one.
func (s *Supervisor) scheduleRetry(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.logger.Info("Scheduling reconnect attempt.", "delay", s.delay.String())
	s.timer = time.AfterFunc(s.delay, func() {
		s.retry(ctx)
	})
}

// ScheduleRetry arms the reconnect timer from outside the drop path, so a
// caller that chose not to fail hard on a failed Start can hand the attempt
// over to the supervisor's schedule.
func (s *Supervisor) ScheduleRetry(ctx context.Context) {
	s.scheduleRetry(ctx)
}

// retry runs one scheduled reconnect attempt. Unlike Start, a failed retry
// arms the next one so reconnection repeats until Stop.
func (s *Supervisor) retry(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.attempt(ctx); err != nil {
		s.logger.Warn("Reconnect attempt failed.", "error", err)
		s.fireError(err)
		s.scheduleRetry(ctx)
	}
}

// Stop permanently shuts the supervisor down: the pending retry is cancelled,
// the active socket is closed, and the state is Disconnected for good.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	active := s.active
	s.active = nil
	s.mu.Unlock()

	if active != nil {
		if err := active.Close(ctx); err != nil {
			s.logger.Warn("Failed to close active transport.", "error", err)
		}
	}
	if s.machine.Can(EventDisconnect) {
		_ = s.machine.Fire(ctx, EventDisconnect, nil)
	}
	s.logger.Info("Supervisor stopped.")
	return nil
}

func (s *Supervisor) fireConnected() {
	s.mu.Lock()
	fn := s.onConnect
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Supervisor) fireDropped() {
	s.mu.Lock()
	fn := s.onDrop
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Supervisor) fireError(err error) {
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
