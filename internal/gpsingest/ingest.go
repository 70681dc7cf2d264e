package gpsingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sailcore/sailcore/internal/sharedstate"
	"go.uber.org/zap"
)

// Port is the minimal serial transport the ingest task needs — the GPS
// port is owned exclusively by this task (§5 "The GPS serial port is
// owned by the GPS ingest task").
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SaveStore is the narrow save-only dependency, satisfied by
// *sharedstate.Store.
type SaveStore interface {
	Save(ctx context.Context, rec sharedstate.Record) error
}

// ReadTimeout bounds each blocking serial read so the task can observe
// context cancellation promptly.
const ReadTimeout = 10 * time.Second

// DeviceError reports a serial read failure surviving past the bounded
// retry budget below (§7 DeviceError).
type DeviceError struct {
	Attempts int
	Err      error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("gpsingest: read failed after %d attempts: %v", e.Attempts, e.Err)
}
func (e *DeviceError) Unwrap() error { return e.Err }

// MaxDeviceRetries bounds the ingest task's consecutive-failure retry
// budget before giving up and returning a DeviceError.
const MaxDeviceRetries = 5

// deviceBackoffSchedule is the delay after each consecutive read failure,
// capped at its final value. It is a shorter schedule than ottolink's
// sync backoff table (§4.5), which runs up to 60 seconds.
var deviceBackoffSchedule = []time.Duration{
	1 * time.Second, 1 * time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second,
}

func deviceBackoffDelay(attempt int) time.Duration {
	if attempt >= len(deviceBackoffSchedule) {
		attempt = len(deviceBackoffSchedule) - 1
	}
	if attempt < 0 {
		attempt = 0
	}
	return deviceBackoffSchedule[attempt]
}

// Ingest reads NMEA lines from a GPS serial port, parses GPRMC sentences,
// and publishes each decoded fix to the shared-state store.
type Ingest struct {
	port    Port
	store   SaveStore
	log     *zap.SugaredLogger
	onAlarm func(name string)
}

// NewIngest constructs an Ingest task. onAlarm, if non-nil, is invoked
// with "GPS_INVALID" whenever a fix arrives with status V (void).
func NewIngest(port Port, store SaveStore, log *zap.SugaredLogger, onAlarm func(name string)) *Ingest {
	return &Ingest{port: port, store: store, log: log, onAlarm: onAlarm}
}

// Run blocks reading lines until ctx is cancelled or the port fails.
// Lines not beginning with '$' or that fail checksum/parse are logged
// and discarded (§6); only GPRMC sentences are interpreted, all others
// are logged at debug level and skipped.
func (in *Ingest) Run(ctx context.Context) error {
	reader := bufio.NewReader(in.port)
	_ = in.port.SetReadTimeout(ReadTimeout)

	failures := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if isTimeout(err) {
				continue
			}
			failures++
			if failures > MaxDeviceRetries {
				return &DeviceError{Attempts: failures, Err: err}
			}
			if in.log != nil {
				in.log.Warnw("gps ingest: transient read error, retrying with backoff", "attempt", failures, "error", err)
			}
			select {
			case <-time.After(deviceBackoffDelay(failures - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		failures = 0

		if err := in.handleLine(ctx, line); err != nil {
			if in.log != nil {
				in.log.Warnw("discarding malformed NMEA sentence", "error", err)
			}
		}
	}
}

func (in *Ingest) handleLine(ctx context.Context, line string) error {
	id, err := SentenceID(line)
	if err != nil {
		return err
	}
	if len(id) < 3 || id[len(id)-3:] != "RMC" {
		if in.log != nil {
			in.log.Debugw("discarding non-RMC NMEA sentence", "sentence", id)
		}
		return nil
	}

	fix, err := ParseGPRMC(line)
	if err != nil {
		return err
	}

	if !fix.Valid && in.onAlarm != nil {
		in.onAlarm("GPS_INVALID")
	}

	return in.store.Save(ctx, FromFix(fix))
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if t, ok := err.(timeouter); ok {
		return t.Timeout()
	}
	return false
}
