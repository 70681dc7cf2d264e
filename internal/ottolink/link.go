package ottolink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sailcore/sailcore/internal/sharedstate"
	"go.uber.org/zap"
)

// Port is the minimal serial transport the link needs: go.bug.st/serial's
// serial.Port satisfies it directly, and tests substitute an in-memory
// fake.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SyncError reports that Sync could not write the handshake request.
// Unanswered handshakes are retried inside Sync itself, indefinitely,
// since the controller may simply be rebooting (§7); cmd/sailcore treats
// a SyncError as fatal.
type SyncError struct {
	Attempts int
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("ottolink: sync failed after %d attempts: %v", e.Attempts, e.Err)
}
func (e *SyncError) Unwrap() error { return e.Err }

// DeviceError reports a serial read/write failure surviving past the
// bounded retry budget below (§7 DeviceError — "bounded retry with
// backoff", distinct from SyncError's indefinite retry since a device
// that keeps failing after reboot-length backoffs is unlikely to
// recover on its own).
type DeviceError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("ottolink: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}
func (e *DeviceError) Unwrap() error { return e.Err }

// MaxDeviceRetries bounds the reader/writer's consecutive-failure retry
// budget before giving up and returning a DeviceError.
const MaxDeviceRetries = 5

// backoffSchedule is the retry delay (seconds) after each failed sync
// attempt, capped at the final value per §4.5.
var backoffSchedule = []time.Duration{
	1 * time.Second, 1 * time.Second, 1 * time.Second, 1 * time.Second,
	2 * time.Second, 2 * time.Second, 3 * time.Second, 5 * time.Second,
	10 * time.Second, 10 * time.Second, 20 * time.Second, 30 * time.Second,
	60 * time.Second,
}

func backoffDelay(attempt int) time.Duration {
	if attempt >= len(backoffSchedule) {
		attempt = len(backoffSchedule) - 1
	}
	if attempt < 0 {
		attempt = 0
	}
	return backoffSchedule[attempt]
}

// ReadTimeout is the per-read timeout used while waiting for a handshake
// acknowledgement or a frame line (~10s per §5 "Serial reads have a
// finite timeout").
const ReadTimeout = 10 * time.Second

// Sync performs the boot-time handshake: send "@@CQ!" and wait for a
// reply beginning with "+CQOK" or "+OK". Retries with backoff until ctx
// is cancelled. The controller discards line noise until synced, so
// unrelated lines received before the ack are simply ignored.
func Sync(ctx context.Context, port Port, log *zap.SugaredLogger) error {
	reader := bufio.NewReader(port)
	attempt := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := io.WriteString(port, SyncRequest+"\r\n"); err != nil {
			return &SyncError{Attempts: attempt + 1, Err: err}
		}

		_ = port.SetReadTimeout(ReadTimeout)
		line, err := reader.ReadString('\n')
		if err == nil && isSyncAck(line) {
			if log != nil {
				log.Infow("otto link synchronized", "attempts", attempt+1)
			}
			return nil
		}

		if log != nil {
			log.Warnw("otto sync attempt failed, retrying with backoff", "attempt", attempt+1, "delay", backoffDelay(attempt))
		}

		select {
		case <-time.After(backoffDelay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
		attempt++
	}
}

// Reader consumes newline-terminated frames from the controller after
// sync, updates State, and persists it through a SaveStore on every
// frame.
type Reader struct {
	port  Port
	state *State
	store SaveStore
	log   *zap.SugaredLogger

	mu           sync.Mutex
	lastBootSecs uint32
	haveBootSecs bool
	onAlarm      func(name string)
}

// SaveStore is the narrow save-only interface the reader and writer
// depend on — satisfied by *sharedstate.Store.
type SaveStore interface {
	Save(ctx context.Context, rec sharedstate.Record) error
}

// NewReader constructs a Reader. onAlarm, if non-nil, is invoked with an
// alarm name (e.g. "OTTO_RESTART") whenever the reader detects one.
func NewReader(port Port, state *State, store SaveStore, log *zap.SugaredLogger, onAlarm func(name string)) *Reader {
	return &Reader{port: port, state: state, store: store, log: log, onAlarm: onAlarm}
}

// Run reads frames until ctx is cancelled or a run of consecutive
// non-timeout read errors exhausts the retry budget. Read timeouts are
// not fatal: the reader loops. A transient read error (e.g. a USB
// hiccup) is retried with backoff rather than ending the task outright.
func (r *Reader) Run(ctx context.Context) error {
	reader := bufio.NewReader(r.port)
	_ = r.port.SetReadTimeout(ReadTimeout)

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
				return &DeviceError{Op: "read", Attempts: failures, Err: err}
			}
			if r.log != nil {
				r.log.Warnw("otto reader: transient read error, retrying with backoff", "attempt", failures, "error", err)
			}
			select {
			case <-time.After(backoffDelay(failures - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		failures = 0

		if err := r.handleLine(ctx, line); err != nil {
			if r.log != nil {
				r.log.Warnw("discarding malformed otto frame", "error", err)
			}
		}
	}
}

func (r *Reader) handleLine(ctx context.Context, line string) error {
	tag, payload, err := SplitFrame(line)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch tag {
	case TagStatus:
		status, err := ParseStatus(payload)
		if err != nil {
			return err
		}
		r.state.AlarmStatus = status.AlarmStatus
		r.state.ActualAWA = AWARegisterToRadians(status.AWA)
		r.state.ActualCompass = CompassRegisterToRadians(status.Compass)
		r.state.ActualRudder = RudderRegisterToDegrees(status.Rudder)
		r.state.ActualSail = SailRegisterToPercent(status.Sail)

	case TagBootTime:
		secs, err := ParseBootSeconds(payload)
		if err != nil {
			return err
		}
		if r.haveBootSecs && secs < r.lastBootSecs && r.onAlarm != nil {
			r.onAlarm("OTTO_RESTART")
		}
		r.lastBootSecs = secs
		r.haveBootSecs = true
		r.state.BootTimestamp = secs

	case TagMode:
		mode, err := ParseMode(payload)
		if err != nil {
			return err
		}
		r.state.Mode = mode

	case TagTelemetry:
		tel, err := ParseTelemetry(payload)
		if err != nil {
			return err
		}
		if tel.Channel >= 0 && tel.Channel < TelemetryChannels {
			r.state.Telemetry[tel.Channel] = tel.Sample
		}

	case TagDebug:
		if r.log != nil {
			r.log.Infow("otto debug", "message", payload)
		}
		return nil

	default:
		return &FrameError{Line: line, Reason: "unknown tag"}
	}

	return r.store.Save(ctx, r.state)
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return false
}
