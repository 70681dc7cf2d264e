// Package mission owns the mission file loader, the MissionStatus record
// and its state machine, and the supervisor loop that drives the
// navigator while a voyage is active.
package mission

import (
	"fmt"
	"time"

	"github.com/sailcore/sailcore/internal/sharedstate"
)

// State is a MissionStatus lifecycle state (§4, §4.7). States evolve
// monotonically; AWAITING is never re-entered once left.
type State string

const (
	StateAwaiting      State = "AWAITING"
	StateReadyToStart  State = "READY_TO_START"
	StateStartTest     State = "START_TEST"
	StateRadioControl  State = "RADIO_CONTROL"
	StateCompassFollow State = "COMPASS_FOLLOW"
	StateWindFollow    State = "WIND_FOLLOW"
	StateComplete      State = "COMPLETE"
	StateTerminated    State = "TERMINATED"
	StateFailure       State = "FAILURE"
)

// UnstartedWaypoint is the sentinel CurrentWaypoint value before a
// mission has commenced.
const UnstartedWaypoint = -1

// active reports whether state lies in [START_TEST, COMPLETE) — the
// range during which the supervisor runs the navigator every cycle
// instead of polling once a minute.
func active(s State) bool {
	switch s {
	case StateStartTest, StateRadioControl, StateCompassFollow, StateWindFollow:
		return true
	default:
		return false
	}
}

// transitions enumerates the legal state machine edges (§4.7). A
// transition not present here is rejected by Status.Transition.
var transitions = map[State]map[State]bool{
	StateAwaiting:      {StateReadyToStart: true, StateFailure: true},
	StateReadyToStart:  {StateStartTest: true, StateFailure: true, StateTerminated: true},
	StateStartTest:     {StateRadioControl: true, StateCompassFollow: true, StateWindFollow: true, StateComplete: true, StateTerminated: true, StateFailure: true},
	StateRadioControl:  {StateComplete: true, StateTerminated: true, StateFailure: true},
	StateCompassFollow: {StateComplete: true, StateTerminated: true, StateFailure: true},
	StateWindFollow:    {StateComplete: true, StateTerminated: true, StateFailure: true},
	StateComplete:      {},
	StateTerminated:    {},
	StateFailure:       {},
}

// StateError reports an illegal MissionStatus transition.
type StateError struct {
	From, To State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("mission: illegal transition from %s to %s", e.From, e.To)
}

// Status is the shared MissionStatus record (§4).
type Status struct {
	RunID           string
	State           State
	CurrentWaypoint int32
	StartTime       time.Time
	EndTime         time.Time
}

// NewStatus returns an unstarted MissionStatus stamped with runID, a
// fresh per-voyage correlation ID the caller mints with
// github.com/google/uuid.
func NewStatus(runID string) *Status {
	return &Status{
		RunID:           runID,
		State:           StateAwaiting,
		CurrentWaypoint: UnstartedWaypoint,
	}
}

// Active reports whether the navigator should run this cycle.
func (s *Status) Active() bool { return active(s.State) }

// Transition moves the status to "to", validating the edge against the
// state machine and stamping StartTime/EndTime where the machine
// implies it. Returns a *StateError for an illegal edge; the caller
// should treat that as grounds to transition to FAILURE instead.
func (s *Status) Transition(to State) error {
	allowed, ok := transitions[s.State]
	if !ok || !allowed[to] {
		return &StateError{From: s.State, To: to}
	}
	if to == StateStartTest && s.StartTime.IsZero() {
		s.StartTime = time.Now()
	}
	if to == StateComplete || to == StateTerminated || to == StateFailure {
		s.EndTime = time.Now()
	}
	s.State = to
	return nil
}

// TypeName implements sharedstate.Record.
func (s *Status) TypeName() string { return "missionstatus" }

// Fields implements sharedstate.Record.
func (s *Status) Fields() map[string]string {
	return map[string]string{
		"missionstatus.run_id":          s.RunID,
		"missionstatus.state":           string(s.State),
		"missionstatus.current_waypoint": fmt.Sprintf("%d", s.CurrentWaypoint),
		"missionstatus.start_time":      encodeTimestamp(s.StartTime),
		"missionstatus.end_time":        encodeTimestamp(s.EndTime),
	}
}

// Load implements sharedstate.Record.
func (s *Status) Load(fields map[string]string) {
	if v, ok := fields["missionstatus.run_id"]; ok && v != "" {
		s.RunID = v
	}
	if v, ok := fields["missionstatus.state"]; ok && v != "" {
		s.State = State(v)
	}
	s.CurrentWaypoint = int32(decodeInt(fields["missionstatus.current_waypoint"], int64(s.CurrentWaypoint)))
	s.StartTime = decodeTimestamp(fields["missionstatus.start_time"], s.StartTime)
	s.EndTime = decodeTimestamp(fields["missionstatus.end_time"], s.EndTime)
}

var _ sharedstate.Record = (*Status)(nil)
