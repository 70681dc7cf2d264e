package mission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatusStartsUnstarted(t *testing.T) {
	s := NewStatus("run-1")
	assert.Equal(t, StateAwaiting, s.State)
	assert.Equal(t, int32(UnstartedWaypoint), s.CurrentWaypoint)
	assert.False(t, s.Active())
}

func TestTransitionFollowsHappyPath(t *testing.T) {
	s := NewStatus("run-1")
	require.NoError(t, s.Transition(StateReadyToStart))
	require.NoError(t, s.Transition(StateStartTest))
	assert.False(t, s.StartTime.IsZero())

	require.NoError(t, s.Transition(StateCompassFollow))
	assert.True(t, s.Active())

	require.NoError(t, s.Transition(StateComplete))
	assert.False(t, s.Active())
	assert.False(t, s.EndTime.IsZero())
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	s := NewStatus("run-1")
	err := s.Transition(StateComplete)
	require.Error(t, err)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StateAwaiting, stateErr.From)
	assert.Equal(t, StateComplete, stateErr.To)
}

func TestTransitionToFailureAllowedFromActiveState(t *testing.T) {
	s := NewStatus("run-1")
	require.NoError(t, s.Transition(StateReadyToStart))
	require.NoError(t, s.Transition(StateStartTest))
	require.NoError(t, s.Transition(StateFailure))
	assert.False(t, s.Active())
}

func TestFieldsRoundTripThroughLoad(t *testing.T) {
	s := NewStatus("run-42")
	require.NoError(t, s.Transition(StateReadyToStart))
	require.NoError(t, s.Transition(StateStartTest))
	s.CurrentWaypoint = 3

	fields := s.Fields()

	loaded := &Status{}
	loaded.Load(fields)

	assert.Equal(t, s.RunID, loaded.RunID)
	assert.Equal(t, s.State, loaded.State)
	assert.Equal(t, s.CurrentWaypoint, loaded.CurrentWaypoint)
	// Fields stores times as float seconds, which keeps well under a
	// microsecond of precision for present-day timestamps.
	assert.WithinDuration(t, s.StartTime, loaded.StartTime, time.Microsecond)
}

func TestLoadKeepsExistingValueWhenFieldAbsent(t *testing.T) {
	s := &Status{RunID: "keep-me", State: StateCompassFollow, CurrentWaypoint: 5}
	s.Load(map[string]string{})

	assert.Equal(t, "keep-me", s.RunID)
	assert.Equal(t, StateCompassFollow, s.State)
	assert.Equal(t, int32(5), s.CurrentWaypoint)
}
