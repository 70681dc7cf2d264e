package ottolink

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// fakePort is an in-memory duplex transport standing in for
// go.bug.st/serial.Port in tests.
type fakePort struct {
	mu       sync.Mutex
	toRead   bytes.Buffer
	written  bytes.Buffer
	timeout  time.Duration
	breakErr error
	writeErr error
}

type fakeTimeoutError struct{}

func (fakeTimeoutError) Error() string { return "fake read timeout" }
func (fakeTimeoutError) Timeout() bool { return true }

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.toRead.Len() == 0 {
		if p.breakErr != nil {
			return 0, p.breakErr
		}
		return 0, fakeTimeoutError{}
	}
	return p.toRead.Read(b)
}

// breakReads makes every subsequent empty-buffer Read return err instead
// of a timeout, simulating a device that has stopped responding.
func (p *fakePort) breakReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakErr = err
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

// breakWrites makes every subsequent Write fail with err.
func (p *fakePort) breakWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

func (p *fakePort) Close() error { return nil }

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *fakePort) feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toRead.WriteString(s)
}

func (p *fakePort) writtenString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

var errClosed = errors.New("fake port closed")
