package secio

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/p2pkit/secio/pkg/msgio"
)

// ErrorCode classifies handshake and session failures.
type ErrorCode int

const (
	CodeIdentityMismatch ErrorCode = iota + 1
	CodeTalkingToSelf
	CodeNoCommonAlgorithm
	CodeKeyGenerationFailed
	CodeKeyAgreementFailed
	CodeSigningFailed
	CodeSignatureVerificationFailed
	CodeMacVerificationFailed
	CodeDecryptionFailed // Reserved for ciphers that can reject input; current stream ciphers cannot.
	CodeNonceMismatch
	CodeMalformedMessage
	CodeUnexpectedEOF
	CodeUnderlyingIO
)

var codeNames = map[ErrorCode]string{
	CodeIdentityMismatch:            "IdentityMismatch",
	CodeTalkingToSelf:               "TalkingToSelf",
	CodeNoCommonAlgorithm:           "NoCommonAlgorithm",
	CodeKeyGenerationFailed:         "KeyGenerationFailed",
	CodeKeyAgreementFailed:          "KeyAgreementFailed",
	CodeSigningFailed:               "SigningFailed",
	CodeSignatureVerificationFailed: "SignatureVerificationFailed",
	CodeMacVerificationFailed:       "MacVerificationFailed",
	CodeDecryptionFailed:            "DecryptionFailed",
	CodeNonceMismatch:               "NonceMismatch",
	CodeMalformedMessage:            "MalformedMessage",
	CodeUnexpectedEOF:               "UnexpectedEof",
	CodeUnderlyingIO:                "UnderlyingIo",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Category names the algorithm family a NoCommonAlgorithm error refers to.
type Category int

const (
	CategoryNone Category = iota
	CategoryCurve
	CategoryCipher
	CategoryHash
)

func (c Category) String() string {
	switch c {
	case CategoryCurve:
		return "curve"
	case CategoryCipher:
		return "cipher"
	case CategoryHash:
		return "hash"
	}
	return ""
}

// Error is returned by every failed handshake or session operation.
type Error struct {
	Code     ErrorCode
	Category Category // Only set for CodeNoCommonAlgorithm.
	Info     string
	Err      error

	temporary bool
}

// Sentinel values for use with errors.Is. Comparison is by Code (and by Category, if the target
// sets one), so errors.Is(err, ErrNoCommonAlgorithm) matches any category.
var (
	ErrIdentityMismatch            = &Error{Code: CodeIdentityMismatch}
	ErrTalkingToSelf               = &Error{Code: CodeTalkingToSelf}
	ErrNoCommonAlgorithm           = &Error{Code: CodeNoCommonAlgorithm}
	ErrKeyGenerationFailed         = &Error{Code: CodeKeyGenerationFailed}
	ErrKeyAgreementFailed          = &Error{Code: CodeKeyAgreementFailed}
	ErrSigningFailed               = &Error{Code: CodeSigningFailed}
	ErrSignatureVerificationFailed = &Error{Code: CodeSignatureVerificationFailed}
	ErrMacVerificationFailed       = &Error{Code: CodeMacVerificationFailed}
	ErrDecryptionFailed            = &Error{Code: CodeDecryptionFailed}
	ErrNonceMismatch               = &Error{Code: CodeNonceMismatch}
	ErrMalformedMessage            = &Error{Code: CodeMalformedMessage}
	ErrUnexpectedEOF               = &Error{Code: CodeUnexpectedEOF}
	ErrUnderlyingIO                = &Error{Code: CodeUnderlyingIO}
)

// ErrSessionClosed is returned by Session methods after Close.
var ErrSessionClosed = errors.New("secure session closed")

func newError(code ErrorCode, info string) *Error {
	return &Error{Code: code, Info: info}
}

func wrapError(code ErrorCode, err error, info string) *Error {
	return &Error{Code: code, Info: info, Err: err}
}

func noCommonAlgorithm(category Category, remote string) *Error {
	return &Error{
		Code:     CodeNoCommonAlgorithm,
		Category: category,
		Info:     fmt.Sprintf("peer offered %q", remote),
	}
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Category != CategoryNone {
		msg += "(" + e.Category.String() + ")"
	}
	if e.Info != "" {
		msg += ": " + e.Info
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Category == CategoryNone || t.Category == e.Category)
}

// Temporary returns true if the error came from a transport deadline or cancelled context. The
// handshake or session that returned it is intact and the operation may be retried.
func (e *Error) Temporary() bool {
	return e.temporary
}

// Temporary returns true if err is an *Error that leaves the handshake or session resumable.
func Temporary(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Temporary()
}

// ioError classifies a transport failure.
func ioError(err error) *Error {
	switch {
	case err == io.EOF, errors.Is(err, io.ErrUnexpectedEOF):
		return wrapError(CodeUnexpectedEOF, err, "")
	case errors.Is(err, msgio.ErrMsgTooLarge):
		return wrapError(CodeMalformedMessage, err, "")
	}
	e := wrapError(CodeUnderlyingIO, err, "")
	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		e.temporary = true
	}
	return e
}
