package secio

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"
)

// halfPipe is one direction of an in-memory connection. Writes never block; reads block until
// data arrives, the pipe is closed, or the read deadline passes.
type halfPipe struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      bytes.Buffer
	closed   bool
	deadline time.Time
	timer    *time.Timer
}

func newHalfPipe() *halfPipe {
	p := &halfPipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *halfPipe) read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.buf.Len() == 0 {
		if p.closed {
			return 0, io.EOF
		}
		if !p.deadline.IsZero() && !time.Now().Before(p.deadline) {
			return 0, os.ErrDeadlineExceeded
		}
		p.cond.Wait()
	}
	return p.buf.Read(b)
}

func (p *halfPipe) write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.buf.Write(b)
	p.cond.Broadcast()
	return len(b), nil
}

func (p *halfPipe) setDeadline(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deadline = t
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if !t.IsZero() {
		p.timer = time.AfterFunc(time.Until(t), func() {
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
		})
	}
	p.cond.Broadcast()
}

func (p *halfPipe) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
}

type pipeConn struct {
	r, w *halfPipe
}

func (c *pipeConn) Read(b []byte) (int, error)  { return c.r.read(b) }
func (c *pipeConn) Write(b []byte) (int, error) { return c.w.write(b) }

func (c *pipeConn) SetDeadline(t time.Time) error {
	c.r.setDeadline(t)
	return nil
}

func (c *pipeConn) Close() error {
	c.r.close()
	c.w.close()
	return nil
}

// newPipe returns both ends of a buffered in-memory duplex connection.
func newPipe() (*pipeConn, *pipeConn) {
	ab, ba := newHalfPipe(), newHalfPipe()
	return &pipeConn{r: ba, w: ab}, &pipeConn{r: ab, w: ba}
}

// newLoopback returns a connection that reads back whatever is written to it.
func newLoopback() *pipeConn {
	p := newHalfPipe()
	return &pipeConn{r: p, w: p}
}

// tamperConn lets a test rewrite outgoing writes. Each Flush of a single queued frame is one write.
type tamperConn struct {
	*pipeConn
	writes int
	tamper func(n int, b []byte) []byte
}

func (c *tamperConn) Write(b []byte) (int, error) {
	c.writes++
	if c.tamper != nil {
		b = c.tamper(c.writes, b)
	}
	return c.pipeConn.Write(b)
}
