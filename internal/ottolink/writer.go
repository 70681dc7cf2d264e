package ottolink

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// WriteRequest is a single register write, already in register units.
type WriteRequest struct {
	Register Register
	Value    uint32
}

// Writer consumes register-write requests from a bounded channel and
// emits framed writes to the controller. Requests are fire-and-forget:
// the writer never blocks the caller beyond the channel's capacity
// (§5). A request that would re-send the currently-held register value
// is suppressed (§4.5 Redundancy suppression).
type Writer struct {
	port    Port
	log     *zap.SugaredLogger
	queue   chan WriteRequest
	lastVal map[Register]uint32
	mode    ControllerMode
	haveMode bool
}

// DefaultQueueCapacity bounds the writer's request channel.
const DefaultQueueCapacity = 64

// NewWriter constructs a Writer over the given port.
func NewWriter(port Port, log *zap.SugaredLogger) *Writer {
	return &Writer{
		port:    port,
		log:     log,
		queue:   make(chan WriteRequest, DefaultQueueCapacity),
		lastVal: make(map[Register]uint32),
	}
}

// Enqueue submits a raw register write without ever blocking the caller:
// when the queue is full, the new request is dropped and a warning is
// logged.
func (w *Writer) Enqueue(req WriteRequest) {
	select {
	case w.queue <- req:
	default:
		if w.log != nil {
			w.log.Warnw("otto writer queue full, dropping request", "register", req.Register)
		}
	}
}

// SetRudderDegrees enqueues a rudder-angle write and forces MANUAL mode.
func (w *Writer) SetRudderDegrees(deg float64) {
	w.forceMode(ModeManual)
	w.Enqueue(WriteRequest{Register: RudderAngle, Value: uint32(RudderDegreesToRegister(deg))})
}

// SetSailPercent enqueues a sail-angle write and forces MANUAL mode.
func (w *Writer) SetSailPercent(pct float64) {
	w.forceMode(ModeManual)
	w.Enqueue(WriteRequest{Register: SailAngle, Value: uint32(SailPercentToRegister(pct))})
}

// SetCompassHeading enqueues a compass-heading write and forces
// TRACK_COMPASS mode.
func (w *Writer) SetCompassHeading(rad float64) {
	w.forceMode(ModeTrackCompass)
	w.Enqueue(WriteRequest{Register: CompassHeading, Value: uint32(RadiansToCompassRegister(rad))})
}

// SetAWAHeading enqueues an AWA-heading write and forces TRACK_AWA mode.
func (w *Writer) SetAWAHeading(rad float64) {
	w.forceMode(ModeTrackAWA)
	w.Enqueue(WriteRequest{Register: AWAHeading, Value: uint32(RadiansToAWARegister(rad))})
}

// forceMode enqueues a Mode register write only if the writer does not
// already believe the controller is in that mode — mode transitions are
// idempotent (§4.5).
func (w *Writer) forceMode(mode ControllerMode) {
	if w.haveMode && w.mode == mode {
		return
	}
	w.mode = mode
	w.haveMode = true
	w.Enqueue(WriteRequest{Register: Mode, Value: uint32(mode)})
}

// Run consumes queued requests until ctx is cancelled, suppressing
// re-sends of the currently-held register value and writing the framed
// line to the port. A write error is retried against the same request
// with backoff up to MaxDeviceRetries before giving up (§7 DeviceError);
// once the budget is exhausted the request is dropped and Run returns,
// since a serial link that won't take a write at all needs operator
// attention, not an indefinite retry.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-w.queue:
			if v, ok := w.lastVal[req.Register]; ok && v == req.Value {
				continue // redundancy suppression
			}
			line := FormatRegisterWrite(req.Register, req.Value)
			failures := 0
			for {
				_, err := io.WriteString(w.port, line)
				if err == nil {
					break
				}
				failures++
				if failures > MaxDeviceRetries {
					return &DeviceError{Op: "write", Attempts: failures, Err: err}
				}
				if w.log != nil {
					w.log.Warnw("otto writer: transient write error, retrying with backoff", "attempt", failures, "error", err)
				}
				select {
				case <-time.After(backoffDelay(failures - 1)):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			w.lastVal[req.Register] = req.Value
		}
	}
}
