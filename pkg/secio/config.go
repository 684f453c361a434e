package secio

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/p2pkit/secio/internal/algorithms"
	"github.com/p2pkit/secio/pkg/identity"
	"github.com/p2pkit/secio/pkg/msgio"
)

//go:generate mockgen -destination ../../internal/mocks/identity.go -package mocks -mock_names Identity=Identity github.com/p2pkit/secio/pkg/secio Identity

// Identity is the long-term key a peer proves possession of during the handshake.
// *identity.HostKey implements it.
type Identity interface {
	// PublicKeyBytes returns the encoded public key sent in the proposal.
	PublicKeyBytes() []byte
	// Sign produces a signature the remote peer can check with identity.Peer.Verify.
	Sign(data []byte) ([]byte, error)
}

var ErrNoIdentity = errors.New("no local identity configured")

// Config controls a handshake.
type Config struct {
	Identity Identity

	// ExpectedPeer, if set, aborts the handshake unless the remote public key hashes to this ID.
	ExpectedPeer identity.ID

	// Curves, Ciphers and Hashes list supported algorithms by wire name, most preferred first.
	// A nil list offers every algorithm in the package catalog.
	Curves  []string
	Ciphers []string
	Hashes  []string

	// Rand supplies nonces and ephemeral keys. Defaults to crypto/rand.
	Rand io.Reader

	// MaxMessageSize bounds incoming frames. Defaults to msgio.DefaultMaxMessageSize.
	MaxMessageSize int
}

// Suite names the algorithms a session negotiated.
type Suite struct {
	Curve  string
	Cipher string
	Hash   string
}

func (s Suite) String() string {
	return fmt.Sprintf("%s/%s/%s", s.Curve, s.Cipher, s.Hash)
}

// proposal is the validated local side of Config.
type proposal struct {
	curves  []string
	ciphers []string
	hashes  []string
}

func checkNames[T any](names []string, all []string, parse func(string) (T, error)) ([]string, error) {
	if names == nil {
		return all, nil
	}
	if len(names) == 0 {
		return nil, errors.New("empty algorithm list")
	}
	for _, name := range names {
		if _, err := parse(name); err != nil {
			return nil, err
		}
	}
	return append([]string(nil), names...), nil
}

func (c *Config) validate() (*proposal, error) {
	if c.Identity == nil {
		return nil, ErrNoIdentity
	}
	if c.Rand == nil {
		c.Rand = rand.Reader
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = msgio.DefaultMaxMessageSize
	}
	var (
		p   proposal
		err error
	)
	if p.curves, err = checkNames(c.Curves, algorithms.Names(algorithms.AllCurves()), algorithms.ParseCurve); err != nil {
		return nil, fmt.Errorf("curves: %w", err)
	}
	if p.ciphers, err = checkNames(c.Ciphers, algorithms.Names(algorithms.AllCiphers()), algorithms.ParseCipher); err != nil {
		return nil, fmt.Errorf("ciphers: %w", err)
	}
	if p.hashes, err = checkNames(c.Hashes, algorithms.Names(algorithms.AllHashes()), algorithms.ParseHash); err != nil {
		return nil, fmt.Errorf("hashes: %w", err)
	}
	return &p, nil
}
