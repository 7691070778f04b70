// Package fsm provides a generic finite state machine wrapper used for the
// connection supervisor and the protocol session lifecycle.
// file: internal/fsm/fsm.go
package fsm

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	lfsm "github.com/looplab/fsm"

	"github.com/hostbridge/hostbridge/internal/logging"
)

// State represents a state in the FSM.
type State string

// Event represents an event that can trigger a state transition.
type Event string

// TransitionAction is executed after a transition completes. It receives the
// triggering event and optional event data.
type TransitionAction func(ctx context.Context, event Event, data any)

// Transition defines a transition rule between states.
type Transition struct {
	From   []State          // Source states for this transition.
	To     State            // The destination state.
	Event  Event            // The event triggering the transition.
	Action TransitionAction // Optional action executed on entering To.
}

// FSM is a thread-safe finite state machine built from a set of transitions.
type FSM struct {
	mu     sync.Mutex
	fsm    *lfsm.FSM
	logger logging.Logger
}

// New builds an FSM with the given initial state and transition table.
func New(initial State, transitions []Transition, logger logging.Logger) (*FSM, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	log := logger.WithField("component", "fsm")

	if len(transitions) == 0 {
		return nil, errors.New("fsm requires at least one transition")
	}

	events := make([]lfsm.EventDesc, 0, len(transitions))
	callbacks := make(lfsm.Callbacks)
	for _, t := range transitions {
		if len(t.From) == 0 {
			return nil, errors.Newf("transition for event %q has no source states", t.Event)
		}
		src := make([]string, len(t.From))
		for i, s := range t.From {
			src[i] = string(s)
		}
		events = append(events, lfsm.EventDesc{
			Name: string(t.Event),
			Src:  src,
			Dst:  string(t.To),
		})
		if t.Action != nil {
			action := t.Action
			event := t.Event
			callbacks["after_"+string(t.Event)] = func(ctx context.Context, e *lfsm.Event) {
				var data any
				if len(e.Args) > 0 {
					data = e.Args[0]
				}
				action(ctx, event, data)
			}
		}
	}

	return &FSM{
		fsm:    lfsm.NewFSM(string(initial), events, callbacks),
		logger: log,
	}, nil
}

// Current returns the current state.
func (f *FSM) Current() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State(f.fsm.Current())
}

// Can reports whether the event is defined for the current state.
func (f *FSM) Can(event Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fsm.Can(string(event))
}

// Fire attempts to trigger a state transition. Data is passed through to the
// transition's action. Firing an event undefined for the current state
// returns an error and leaves the state unchanged.
func (f *FSM) Fire(ctx context.Context, event Event, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	from := f.fsm.Current()
	var err error
	if data != nil {
		err = f.fsm.Event(ctx, string(event), data)
	} else {
		err = f.fsm.Event(ctx, string(event))
	}
	if err != nil {
		f.logger.Debug("Transition rejected.", "event", event, "state", from, "error", err)
		return errors.Wrapf(err, "cannot fire %q from state %q", event, from)
	}
	f.logger.Debug("Transitioned.", "event", event, "from", from, "to", f.fsm.Current())
	return nil
}
