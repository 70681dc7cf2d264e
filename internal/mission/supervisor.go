package mission

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sailcore/sailcore/internal/alarm"
	"github.com/sailcore/sailcore/internal/course"
	"github.com/sailcore/sailcore/internal/gpsingest"
	"github.com/sailcore/sailcore/internal/metrics"
	"github.com/sailcore/sailcore/internal/navigator"
	"github.com/sailcore/sailcore/internal/ottolink"
	"github.com/sailcore/sailcore/internal/polar"
	"github.com/sailcore/sailcore/internal/sharedstate"
	"go.uber.org/zap"
)

// Store is the narrow shared-state surface the supervisor depends on:
// save/load MissionStatus, load the latest OttoState and GpsFix, and
// subscribe to new GpsFix counters.
type Store interface {
	Save(ctx context.Context, rec sharedstate.Record) error
	Load(ctx context.Context, rec sharedstate.Record) error
	Subscribe(ctx context.Context, typeName string) (<-chan int64, func() error, error)
}

// PollInterval is the supervisor's cadence while no mission is active
// (§4.7 "poll MissionStatus once per minute").
const PollInterval = time.Minute

// Supervisor monitors MissionStatus, runs the navigator once per GpsFix
// update while a mission is active, and otherwise polls on a timer
// driven by a robfig/cron `@every` entry, the same scheduling primitive
// the rest of the corpus uses for its own periodic jobs.
type Supervisor struct {
	store    Store
	writer   *ottolink.Writer
	file     *File
	status   *Status
	curve    polar.Curve
	navCfg   navigator.Config
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger
	cron     *cron.Cron
	tack     course.Tack
	pollTick chan struct{}
}

// NewSupervisor constructs a Supervisor for one mission file and run.
func NewSupervisor(store Store, writer *ottolink.Writer, file *File, status *Status, curve polar.Curve, navCfg navigator.Config, m *metrics.Metrics, log *zap.SugaredLogger) *Supervisor {
	return &Supervisor{
		store:    store,
		writer:   writer,
		file:     file,
		status:   status,
		curve:    curve,
		navCfg:   navCfg,
		metrics:  m,
		log:      log,
		cron:     cron.New(),
		tack:     course.Starboard,
		pollTick: make(chan struct{}, 1),
	}
}

// Run drives the mission loop until ctx is cancelled (§4.7 Loop,
// §5 "Mission termination cancels all child tasks cooperatively at
// their next suspension point").
func (s *Supervisor) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc("@every 1m", func() {
		select {
		case s.pollTick <- struct{}{}:
		default:
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	defer s.cron.Stop()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if s.status.Active() {
			if err := s.runActiveCycle(ctx); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.pollTick:
			if err := s.store.Load(ctx, s.status); err != nil && s.log != nil {
				s.log.Warnw("mission supervisor: reload status failed", "error", err)
			}
		}
	}
}

// runActiveCycle subscribes to GpsFix updates and runs one navigator
// cycle per new counter until the mission leaves the active range.
func (s *Supervisor) runActiveCycle(ctx context.Context) error {
	updates, cancel, err := s.store.Subscribe(ctx, "gpsfix")
	if err != nil {
		return err
	}
	defer cancel()

	s.raiseAlarm(ctx, alarm.MissionCommence)

	for s.status.Active() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-updates:
			if !ok {
				return nil
			}
			if err := s.step(ctx); err != nil {
				var navErr *navigator.NavError
				if errors.As(err, &navErr) {
					// §7: NavError is not terminal — raise an alarm, hold
					// the current heading (step returns before writing
					// one), and keep cycling.
					if s.log != nil {
						s.log.Warnw("mission supervisor: navigator found no usable heading, holding course", "error", err)
					}
					s.raiseAlarm(ctx, alarm.NavFailure)
					continue
				}
				if s.log != nil {
					s.log.Errorw("mission supervisor: navigator step failed", "error", err)
				}
				_ = s.status.Transition(StateFailure)
				return s.store.Save(ctx, s.status)
			}
		}
	}
	return nil
}

// raiseAlarm persists and publishes name through the alarm bitmap,
// logging a warning rather than propagating a failure — a lost alarm
// publish should not itself abort the mission.
func (s *Supervisor) raiseAlarm(ctx context.Context, name alarm.Name) {
	if err := alarm.Raise(ctx, s.store, name); err != nil && s.log != nil {
		s.log.Warnw("mission supervisor: failed to raise alarm", "alarm", name, "error", err)
	}
}

// step loads the latest GPS fix and Otto state, runs one navigator
// cycle, and writes the chosen heading to the controller.
func (s *Supervisor) step(ctx context.Context) error {
	fix := &gpsingest.GpsFix{}
	if err := s.store.Load(ctx, fix); err != nil {
		return err
	}
	if !fix.Valid {
		return nil // retry after the next GpsFix publish; not fatal (§4.6 edge cases)
	}

	otto := &ottolink.State{}
	if err := s.store.Load(ctx, otto); err != nil {
		return err
	}

	in := navigator.Input{
		Location:        fix.Location,
		Compass:         otto.ActualCompass,
		AWA:             otto.ActualAWA,
		Curve:           s.curve,
		Attractors:      s.file.Attractors,
		Repellors:       s.file.Repellors,
		CurrentWaypoint: int(s.status.CurrentWaypoint),
		CurrentTack:     s.tack,
	}

	result, err := navigator.Plan(s.navCfg, in)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementNavErrors()
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementNavigatorCycles()
	}

	if result.Complete {
		s.status.CurrentWaypoint = int32(result.CurrentWaypoint)
		if err := s.status.Transition(StateComplete); err != nil {
			return err
		}
		s.raiseAlarm(ctx, alarm.MissionComplete)
		return s.store.Save(ctx, s.status)
	}

	if result.Tacked && s.metrics != nil {
		s.metrics.IncrementTacksExecuted()
	}
	s.tack = result.Tack

	if int32(result.CurrentWaypoint) != s.status.CurrentWaypoint {
		s.status.CurrentWaypoint = int32(result.CurrentWaypoint)
		if s.metrics != nil {
			s.metrics.IncrementWaypointsReached()
		}
		s.raiseAlarm(ctx, alarm.WaypointReached)
	}

	s.writer.SetCompassHeading(result.Heading)

	return s.store.Save(ctx, s.status)
}
