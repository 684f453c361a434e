package secio

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/p2pkit/secio/internal/algorithms"
	"github.com/p2pkit/secio/pkg/identity"
	"github.com/p2pkit/secio/pkg/msgio"
)

// Session is an authenticated, encrypted message stream. Each frame carries ciphertext followed by
// a MAC over that ciphertext; frames are verified before they are decrypted.
//
// One goroutine may read while another writes, but neither side may be used concurrently with
// itself. The first non-temporary error from either side is terminal: every later read and write
// returns it. A clean end of stream only ends reading.
type Session struct {
	transport io.ReadWriter
	reader    *msgio.Reader
	writer    *msgio.Writer
	algs      *algorithms.SharedAlgorithms

	local  identity.ID
	remote *identity.Peer
	suite  Suite

	err    atomic.Pointer[Error]
	eof    bool
	unread []byte
	closed atomic.Bool
}

func newSession(transport io.ReadWriter, rw *msgio.ReadWriter, algs *algorithms.SharedAlgorithms, local identity.ID, remote *identity.Peer, suite Suite) *Session {
	return &Session{
		transport: transport,
		reader:    rw.Reader,
		writer:    rw.Writer,
		algs:      algs,
		local:     local,
		remote:    remote,
		suite:     suite,
	}
}

func (s *Session) LocalPeer() identity.ID {
	return s.local
}

func (s *Session) RemotePeer() *identity.Peer {
	return s.remote
}

// Algorithms reports the negotiated curve, cipher and hash.
func (s *Session) Algorithms() Suite {
	return s.suite
}

// seal encrypts and authenticates plaintext and queues the frame for the next Flush.
func (s *Session) seal(plaintext []byte) {
	ciphertext := s.algs.Encrypt(plaintext)
	s.writer.Buffer(append(ciphertext, s.algs.Sign(ciphertext)...))
}

// check returns the error a new operation must fail with, if any.
func (s *Session) check() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if e := s.err.Load(); e != nil {
		return e
	}
	return nil
}

// fail records e as the terminal error unless it is temporary.
func (s *Session) fail(e *Error) error {
	if e.Temporary() {
		return e
	}
	s.err.CompareAndSwap(nil, e)
	return s.err.Load()
}

// WriteMsg sends msg as a single frame. If it fails with a temporary error the frame remains
// queued and is sent by the next Flush or WriteMsg; msg must not be written again.
func (s *Session) WriteMsg(msg []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	s.seal(msg)
	return s.Flush()
}

// Flush sends any frames left queued by a temporary write failure.
func (s *Session) Flush() error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.writer.Flush(); err != nil {
		return s.fail(ioError(err))
	}
	return nil
}

// Write implements io.Writer. Each call produces one frame. Once p has been sealed it counts as
// written, so a temporary error is reported with n == len(p) and the frame goes out with the next
// Write or Flush.
func (s *Session) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.check(); err != nil {
		return 0, err
	}
	s.seal(p)
	if err := s.Flush(); err != nil {
		if Temporary(err) {
			return len(p), err
		}
		return 0, err
	}
	return len(p), nil
}

// ReadMsg returns the plaintext of the next frame. It returns io.EOF if the transport closed
// cleanly between frames.
func (s *Session) ReadMsg() ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if s.eof {
		return nil, io.EOF
	}
	frame, err := s.reader.ReadMsg()
	if err == io.EOF {
		s.eof = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, s.fail(ioError(err))
	}
	digest := s.algs.DigestSize()
	if len(frame) < digest {
		return nil, s.fail(newError(CodeMalformedMessage, "frame shorter than MAC"))
	}
	ciphertext, mac := frame[:len(frame)-digest], frame[len(frame)-digest:]
	if !s.algs.Verify(ciphertext, mac) {
		return nil, s.fail(newError(CodeMacVerificationFailed, ""))
	}
	return s.algs.Decrypt(ciphertext), nil
}

// Read implements io.Reader. A frame larger than p is returned across several calls.
func (s *Session) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.unread) == 0 {
		msg, err := s.ReadMsg()
		if err != nil {
			return 0, err
		}
		s.unread = msg
	}
	n := copy(p, s.unread)
	s.unread = s.unread[n:]
	return n, nil
}

// SetDeadline sets the read and write deadline of the transport, if it supports one.
func (s *Session) SetDeadline(t time.Time) error {
	if d, ok := s.transport.(deadliner); ok {
		return d.SetDeadline(t)
	}
	return nil
}

// Close closes the transport if it is an io.Closer. Later reads and writes return
// ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if c, ok := s.transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
