package gpsingest

import (
	"bytes"
	"sync"
	"time"
)

type fakePort struct {
	mu       sync.Mutex
	toRead   bytes.Buffer
	breakErr error
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

func (p *fakePort) Write(b []byte) (int, error) { return len(b), nil }

func (p *fakePort) Close() error { return nil }

func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func (p *fakePort) feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toRead.WriteString(s)
}
