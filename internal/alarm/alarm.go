// Package alarm maintains the software-raised alarm bitmap: a
// sharedstate.Record distinct from OttoState's own hardware alarm
// bitmap, persisted and published on every raise so any subscriber can
// observe it (§7 "every raised alarm is persisted into the alarm bitmap
// and published").
package alarm

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sailcore/sailcore/internal/sharedstate"
)

// Name is one of the fixed alarm names §7 enumerates.
type Name string

const (
	MotherUnresponsive Name = "MOTHER_UNRESP"
	OttoRestart        Name = "OTTO_RESTART"
	GPSInvalid         Name = "GPS_INVALID"
	WaypointReached    Name = "WAYPOINT_REACHED"
	MissionCommence    Name = "MISSION_COMMENCE"
	MissionComplete    Name = "MISSION_COMPLETE"
	MissionAbort       Name = "MISSION_ABORT"
	CrossTrackError    Name = "CROSS_TRACK_ERROR"
	InsideFence        Name = "INSIDE_FENCE"

	// NavFailure is not one of §7's nine named alarms but is raised for
	// the same NavError condition that section describes ("planner could
	// not find any candidate with non-zero utility; emitted as an
	// alarm") — §7 introduces its alarm list with "include", so this
	// extends rather than contradicts the named set.
	NavFailure Name = "NAV_ERROR"
)

// bit assigns each name a stable bit position in the published bitmap.
var bit = map[Name]uint32{
	MotherUnresponsive: 1 << 0,
	OttoRestart:        1 << 1,
	GPSInvalid:         1 << 2,
	WaypointReached:    1 << 3,
	MissionCommence:    1 << 4,
	MissionComplete:    1 << 5,
	MissionAbort:       1 << 6,
	CrossTrackError:    1 << 7,
	InsideFence:        1 << 8,
	NavFailure:         1 << 9,
}

// Status is the shared-state record holding the accumulated alarm
// bitmap. Bits are sticky; ACK/clear is out of scope for this core (no
// operator surface consumes it yet).
type Status struct {
	Bitmap uint32
}

func (s *Status) TypeName() string { return "alarmstatus" }

func (s *Status) Fields() map[string]string {
	return map[string]string{"alarmstatus.bitmap": strconv.FormatUint(uint64(s.Bitmap), 10)}
}

func (s *Status) Load(fields map[string]string) {
	if v, ok := fields["alarmstatus.bitmap"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			s.Bitmap = uint32(n)
		}
	}
}

var _ sharedstate.Record = (*Status)(nil)

// Store is the narrow save/load surface Raise needs, satisfied by
// *sharedstate.Store.
type Store interface {
	Save(ctx context.Context, rec sharedstate.Record) error
	Load(ctx context.Context, rec sharedstate.Record) error
}

// Raise ORs name's bit into the published alarm bitmap: load the
// current value, set the bit, save — the same read-modify-write shape
// as a register write, but through the shared-state store rather than
// the Otto link so any subscriber, not just the controller, can see it.
func Raise(ctx context.Context, store Store, name Name) error {
	b, ok := bit[name]
	if !ok {
		return fmt.Errorf("alarm: unknown name %q", name)
	}

	status := &Status{}
	if err := store.Load(ctx, status); err != nil {
		return fmt.Errorf("alarm: load status: %w", err)
	}
	status.Bitmap |= b
	if err := store.Save(ctx, status); err != nil {
		return fmt.Errorf("alarm: save status: %w", err)
	}
	return nil
}
