// Package msgio frames discrete messages over a byte stream using a 4-byte big-endian length
// prefix and no suffix.
//
// Readers and Writers keep partially transferred frames across errors. If a read or write fails
// because a deadline expired, calling the same method again continues where the previous call
// stopped; no bytes are lost or duplicated.
package msgio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// LengthSize is the size of the frame length prefix.
const LengthSize = 4

// DefaultMaxMessageSize bounds the frames a Reader accepts unless configured otherwise.
const DefaultMaxMessageSize = 8 << 20

// ErrMsgTooLarge is returned when a frame exceeds the configured maximum.
var ErrMsgTooLarge = errors.New("message exceeds maximum size")

// Reader reads length-prefixed frames.
type Reader struct {
	r       io.Reader
	max     int
	header  [LengthSize]byte
	headerN int
	body    []byte
	bodyN   int
	inBody  bool
}

// NewReader returns a Reader that rejects frames longer than max bytes. A max of zero selects
// DefaultMaxMessageSize.
func NewReader(r io.Reader, max int) *Reader {
	if max <= 0 {
		max = DefaultMaxMessageSize
	}
	return &Reader{r: r, max: max}
}

// ReadMsg returns the next frame. It returns io.EOF only if the stream ends cleanly between frames
// and io.ErrUnexpectedEOF if it ends inside one.
func (r *Reader) ReadMsg() ([]byte, error) {
	for !r.inBody {
		n, err := r.r.Read(r.header[r.headerN:])
		r.headerN += n
		if r.headerN == LengthSize {
			length := binary.BigEndian.Uint32(r.header[:])
			if uint64(length) > uint64(r.max) {
				r.headerN = 0
				return nil, fmt.Errorf("%w: %d > %d", ErrMsgTooLarge, length, r.max)
			}
			r.body = make([]byte, length)
			r.bodyN = 0
			r.inBody = true
			break
		}
		if err != nil {
			if err == io.EOF && r.headerN > 0 {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
	for r.bodyN < len(r.body) {
		n, err := r.r.Read(r.body[r.bodyN:])
		r.bodyN += n
		if r.bodyN == len(r.body) {
			break
		}
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
	msg := r.body
	r.body = nil
	r.headerN = 0
	r.inBody = false
	return msg, nil
}

// Writer writes length-prefixed frames.
type Writer struct {
	w       io.Writer
	pending []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Buffer queues msg as a frame without writing it. Call Flush to transmit queued frames.
func (w *Writer) Buffer(msg []byte) {
	var header [LengthSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(msg)))
	w.pending = append(w.pending, header[:]...)
	w.pending = append(w.pending, msg...)
}

// Pending reports whether queued bytes remain unwritten.
func (w *Writer) Pending() bool {
	return len(w.pending) > 0
}

// Flush writes queued frames. On error the unwritten remainder stays queued.
func (w *Writer) Flush() error {
	for len(w.pending) > 0 {
		n, err := w.w.Write(w.pending)
		w.pending = w.pending[n:]
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	w.pending = nil
	return nil
}

// WriteMsg queues msg and flushes it along with any frame left over from a failed write.
func (w *Writer) WriteMsg(msg []byte) error {
	w.Buffer(msg)
	return w.Flush()
}

// ReadWriter combines a Reader and Writer over one stream.
type ReadWriter struct {
	*Reader
	*Writer
}

func NewReadWriter(rw io.ReadWriter, max int) *ReadWriter {
	return &ReadWriter{Reader: NewReader(rw, max), Writer: NewWriter(rw)}
}
