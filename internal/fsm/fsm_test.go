// file: internal/fsm/fsm_test.go
package fsm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostbridge/hostbridge/internal/logging"
)

const (
	stateIdle    State = "idle"
	stateRunning State = "running"
	stateDone    State = "done"

	eventStart  Event = "start"
	eventFinish Event = "finish"
)

func newTestFSM(t *testing.T, actions map[Event]TransitionAction) *FSM {
	t.Helper()
	transitions := []Transition{
		{From: []State{stateIdle}, Event: eventStart, To: stateRunning, Action: actions[eventStart]},
		{From: []State{stateRunning}, Event: eventFinish, To: stateDone, Action: actions[eventFinish]},
	}
	m, err := New(stateIdle, transitions, logging.GetNoopLogger())
	require.NoError(t, err, "FSM construction should succeed.")
	return m
}

func TestFSM_StartsInInitialState_WhenBuilt(t *testing.T) {
	m := newTestFSM(t, nil)
	assert.Equal(t, stateIdle, m.Current(), "Initial state should be idle.")
}

func TestFSM_Fire_MovesThroughStates_WhenEventsAreValid(t *testing.T) {
	m := newTestFSM(t, nil)
	ctx := context.Background()

	require.NoError(t, m.Fire(ctx, eventStart, nil), "start should be allowed from idle.")
	assert.Equal(t, stateRunning, m.Current(), "State should be running after start.")

	require.NoError(t, m.Fire(ctx, eventFinish, nil), "finish should be allowed from running.")
	assert.Equal(t, stateDone, m.Current(), "State should be done after finish.")
}

func TestFSM_Fire_Fails_WhenEventIsUndefinedForState(t *testing.T) {
	m := newTestFSM(t, nil)

	err := m.Fire(context.Background(), eventFinish, nil)
	require.Error(t, err, "finish must be rejected from idle.")
	assert.Equal(t, stateIdle, m.Current(), "Rejected events must not change state.")
}

func TestFSM_Can_ReportsDefinedEvents(t *testing.T) {
	m := newTestFSM(t, nil)
	assert.True(t, m.Can(eventStart), "start should be possible from idle.")
	assert.False(t, m.Can(eventFinish), "finish should not be possible from idle.")
}

func TestFSM_RunsAction_WithEventData_WhenTransitioning(t *testing.T) {
	var got any
	m := newTestFSM(t, map[Event]TransitionAction{
		eventStart: func(_ context.Context, _ Event, data any) { got = data },
	})

	require.NoError(t, m.Fire(context.Background(), eventStart, "payload"), "start should succeed.")
	assert.Equal(t, "payload", got, "Action should receive the event data.")
}

func TestNew_Fails_WhenTransitionTableIsInvalid(t *testing.T) {
	_, err := New(stateIdle, nil, logging.GetNoopLogger())
	assert.Error(t, err, "Empty transition tables must be rejected.")

	_, err = New(stateIdle, []Transition{{Event: eventStart, To: stateRunning}}, logging.GetNoopLogger())
	assert.Error(t, err, "Transitions without source states must be rejected.")
}
