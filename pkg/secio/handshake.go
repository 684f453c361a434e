package secio

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/p2pkit/secio/internal/algorithms"
	"github.com/p2pkit/secio/internal/log"
	"github.com/p2pkit/secio/internal/wire"
	"github.com/p2pkit/secio/pkg/identity"
	"github.com/p2pkit/secio/pkg/msgio"
)

// NonceSize is the length of the random value each peer contributes to its proposal.
const NonceSize = 16

type step int

const (
	stepPropose step = iota
	stepSendProposal
	stepReceiveProposal
	stepProcessProposal
	stepExchange
	stepSendExchange
	stepReceiveExchange
	stepVerify
	stepDeriveKeys
	stepSendConfirm
	stepReceiveConfirm
	stepDone
)

var stepNames = [...]string{
	"propose", "send-proposal", "receive-proposal", "process-proposal",
	"exchange", "send-exchange", "receive-exchange", "verify",
	"derive-keys", "send-confirm", "receive-confirm", "done",
}

func (s step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Handshake negotiates a Session over a transport.
//
// A Handshake is resumable: if Run fails with an error for which Temporary returns true (a
// transport deadline or an expired context), calling Run again continues from where it stopped.
// Any other error is terminal and returned by every later call. A Handshake must not be used from
// more than one goroutine at a time.
type Handshake struct {
	transport io.ReadWriter
	rw        *msgio.ReadWriter
	config    Config
	local     *proposal
	step      step
	err       error

	localNonce     []byte
	localProposal  []byte
	remoteProposal []byte
	remote         *wire.Propose
	remotePeer     *identity.Peer
	order          algorithms.Ordering
	suite          Suite

	curve  algorithms.Curve
	cipher algorithms.Cipher
	hash   algorithms.Hash

	ephemeral       *algorithms.PrivateKey
	ephemeralPublic []byte
	remoteExchange  *wire.Exchange

	session  *Session
	confirm  [NonceSize]byte
	confirmN int
}

// NewHandshake prepares a handshake over transport. No I/O happens until Run.
func NewHandshake(transport io.ReadWriter, config Config) (*Handshake, error) {
	local, err := config.validate()
	if err != nil {
		return nil, err
	}
	return &Handshake{
		transport: transport,
		rw:        msgio.NewReadWriter(transport, config.MaxMessageSize),
		config:    config,
		local:     local,
	}, nil
}

// Secure runs a complete handshake over transport and returns the resulting session.
func Secure(ctx context.Context, transport io.ReadWriter, config Config) (*Session, error) {
	h, err := NewHandshake(transport, config)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx)
}

// Run drives the handshake until it completes, fails, or ctx expires.
//
// If the transport has a SetDeadline method, the deadline of ctx is applied to it and cancelling
// ctx interrupts blocked I/O. The deadline is cleared before Run returns. Transports without
// SetDeadline are only checked for cancellation between steps.
func (h *Handshake) Run(ctx context.Context) (*Session, error) {
	if h.err != nil {
		return nil, h.err
	}
	if h.step == stepDone {
		return h.session, nil
	}
	release := bindContext(ctx, h.transport)
	defer release()

	for h.step != stepDone {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Code: CodeUnderlyingIO, Info: "interrupted at " + h.step.String(), Err: err, temporary: true}
		}
		if err := h.advance(); err != nil {
			var e *Error
			if !errors.As(err, &e) {
				e = wrapError(CodeUnderlyingIO, err, "")
			}
			if e.Temporary() {
				if ctxErr := ctx.Err(); ctxErr != nil {
					e = &Error{Code: e.Code, Info: e.Info, Err: ctxErr, temporary: true}
				}
				log.Debug("Handshake paused at %s: %s", h.step, e)
				return nil, e
			}
			log.Warning("Handshake failed at %s: %s", h.step, e)
			h.abandon()
			h.err = e
			return nil, e
		}
	}
	log.Info("Secured session with %s using %s", h.remotePeer.ID().ShortString(), h.suite)
	return h.session, nil
}

// abandon drops key material after a terminal failure.
func (h *Handshake) abandon() {
	h.ephemeral = nil
	h.session = nil
	h.localNonce = nil
}

func (h *Handshake) advance() error {
	switch h.step {
	case stepPropose:
		return h.propose()
	case stepSendProposal, stepSendExchange:
		if err := h.rw.Flush(); err != nil {
			return ioError(err)
		}
		h.step++
	case stepReceiveProposal:
		msg, err := h.rw.ReadMsg()
		if err != nil {
			return ioError(err)
		}
		h.remoteProposal = msg
		h.step = stepProcessProposal
	case stepProcessProposal:
		return h.processProposal()
	case stepExchange:
		return h.exchange()
	case stepReceiveExchange:
		msg, err := h.rw.ReadMsg()
		if err != nil {
			return ioError(err)
		}
		ex, err := wire.UnmarshalExchange(msg)
		if err == nil {
			err = ex.Validate()
		}
		if err != nil {
			return wrapError(CodeMalformedMessage, err, "exchange")
		}
		h.remoteExchange = ex
		h.step = stepVerify
	case stepVerify:
		corpus := concat(h.remoteProposal, h.localProposal, h.remoteExchange.Epubkey)
		if err := h.remotePeer.Verify(corpus, h.remoteExchange.Signature); err != nil {
			return wrapError(CodeSignatureVerificationFailed, err, "")
		}
		h.step = stepDeriveKeys
	case stepDeriveKeys:
		return h.deriveKeys()
	case stepSendConfirm:
		if err := h.session.Flush(); err != nil {
			return err
		}
		h.step = stepReceiveConfirm
	case stepReceiveConfirm:
		return h.receiveConfirm()
	}
	return nil
}

func (h *Handshake) propose() error {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(h.config.Rand, nonce); err != nil {
		return wrapError(CodeKeyGenerationFailed, err, "nonce")
	}
	p := &wire.Propose{
		Rand:      nonce,
		Pubkey:    h.config.Identity.PublicKeyBytes(),
		Exchanges: strings.Join(h.local.curves, ","),
		Ciphers:   strings.Join(h.local.ciphers, ","),
		Hashes:    strings.Join(h.local.hashes, ","),
	}
	h.localNonce = nonce
	h.localProposal = p.Marshal()
	log.Debug("Proposing exchanges=%s ciphers=%s hashes=%s", p.Exchanges, p.Ciphers, p.Hashes)
	h.rw.Buffer(h.localProposal)
	h.step = stepSendProposal
	return nil
}

func (h *Handshake) processProposal() error {
	remote, err := wire.UnmarshalPropose(h.remoteProposal)
	if err == nil {
		err = remote.Validate()
	}
	if err != nil {
		return wrapError(CodeMalformedMessage, err, "proposal")
	}
	if len(remote.Rand) != NonceSize {
		return newError(CodeMalformedMessage, fmt.Sprintf("nonce is %d bytes", len(remote.Rand)))
	}
	peer, err := identity.PeerFromPublicKeyBytes(remote.Pubkey)
	if err != nil {
		return wrapError(CodeMalformedMessage, err, "proposal public key")
	}
	if !peer.Matches(h.config.ExpectedPeer) {
		return newError(CodeIdentityMismatch, fmt.Sprintf("expected %s, got %s", h.config.ExpectedPeer, peer.ID()))
	}

	order := computeOrder(h.config.Identity.PublicKeyBytes(), h.localNonce, remote.Pubkey, remote.Rand)
	if order == algorithms.Equal {
		return newError(CodeTalkingToSelf, "")
	}
	suite, err := selectSuite(order, h.local, remote)
	if err != nil {
		return err
	}
	// Names were produced by selectSuite from the validated local lists, so parsing cannot fail.
	h.curve, _ = algorithms.ParseCurve(suite.Curve)
	h.cipher, _ = algorithms.ParseCipher(suite.Cipher)
	h.hash, _ = algorithms.ParseHash(suite.Hash)

	h.remote = remote
	h.remotePeer = peer
	h.order = order
	h.suite = suite
	log.Debug("Peer %s ordering=%s suite=%s", peer.ID().ShortString(), order, suite)
	h.step = stepExchange
	return nil
}

func (h *Handshake) exchange() error {
	ephemeral, err := h.curve.GeneratePrivateKey(h.config.Rand)
	if err != nil {
		return wrapError(CodeKeyGenerationFailed, err, h.curve.String())
	}
	public, err := ephemeral.PublicKey()
	if err != nil {
		return wrapError(CodeKeyGenerationFailed, err, h.curve.String())
	}
	signature, err := h.config.Identity.Sign(concat(h.localProposal, h.remoteProposal, public))
	if err != nil {
		return wrapError(CodeSigningFailed, err, "")
	}
	h.ephemeral = ephemeral
	h.ephemeralPublic = public
	h.rw.Buffer((&wire.Exchange{Epubkey: public, Signature: signature}).Marshal())
	h.step = stepSendExchange
	return nil
}

func (h *Handshake) deriveKeys() error {
	algs, err := h.ephemeral.AgreeWith(h.remoteExchange.Epubkey, h.hash, h.cipher, h.order.Swapped())
	h.ephemeral = nil
	if err != nil {
		return wrapError(CodeKeyAgreementFailed, err, "")
	}
	local := identity.IDFromPublicKeyBytes(h.config.Identity.PublicKeyBytes())
	h.session = newSession(h.transport, h.rw, algs, local, h.remotePeer, h.suite)
	// Echo the remote nonce under the new keys. Queue only; stepSendConfirm transmits it.
	h.session.seal(h.remote.Rand)
	h.step = stepSendConfirm
	return nil
}

func (h *Handshake) receiveConfirm() error {
	for h.confirmN < NonceSize {
		n, err := h.session.Read(h.confirm[h.confirmN:])
		h.confirmN += n
		if err == io.EOF {
			return newError(CodeUnexpectedEOF, "awaiting nonce confirmation")
		}
		if err != nil {
			return err
		}
	}
	if subtle.ConstantTimeCompare(h.confirm[:], h.localNonce) != 1 {
		return newError(CodeNonceMismatch, "")
	}
	h.localNonce = nil
	h.step = stepDone
	return nil
}

// computeOrder compares SHA-256(remotePub||localNonce) with SHA-256(localPub||remoteNonce). Both
// peers compute complementary results from the same pair of proposals.
func computeOrder(localPub, localNonce, remotePub, remoteNonce []byte) algorithms.Ordering {
	h1 := sha256.Sum256(concat(remotePub, localNonce))
	h2 := sha256.Sum256(concat(localPub, remoteNonce))
	return algorithms.Ordering(bytes.Compare(h1[:], h2[:]))
}

func selectSuite(order algorithms.Ordering, local *proposal, remote *wire.Propose) (Suite, error) {
	var (
		suite Suite
		ok    bool
	)
	if suite.Curve, ok = algorithms.SelectBest(order, local.curves, algorithms.SplitNames(remote.Exchanges)); !ok {
		return suite, noCommonAlgorithm(CategoryCurve, remote.Exchanges)
	}
	if suite.Cipher, ok = algorithms.SelectBest(order, local.ciphers, algorithms.SplitNames(remote.Ciphers)); !ok {
		return suite, noCommonAlgorithm(CategoryCipher, remote.Ciphers)
	}
	if suite.Hash, ok = algorithms.SelectBest(order, local.hashes, algorithms.SplitNames(remote.Hashes)); !ok {
		return suite, noCommonAlgorithm(CategoryHash, remote.Hashes)
	}
	return suite, nil
}

func concat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// bindContext applies the deadline and cancellation of ctx to transport. The returned function
// must be called once the I/O it covers is finished.
func bindContext(ctx context.Context, transport io.ReadWriter) func() {
	d, ok := transport.(deadliner)
	if !ok {
		return func() {}
	}
	setDeadline := func(t time.Time) {
		if err := d.SetDeadline(t); err != nil {
			log.Debug("Transport rejected deadline %v: %s", t, err)
		}
	}
	if deadline, ok := ctx.Deadline(); ok {
		setDeadline(deadline)
	}
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		setDeadline(time.Unix(1, 0))
		close(done)
	})
	return func() {
		if !stop() {
			<-done
		}
		setDeadline(time.Time{})
	}
}
