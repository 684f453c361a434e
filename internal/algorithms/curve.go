package algorithms

import (
	"crypto/ecdh"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// Curve identifies an ephemeral Diffie-Hellman group.
type Curve int

const (
	P256 Curve = iota
	P384
	P521
	X25519
)

var allCurves = []Curve{P256, P384, P521, X25519}

var (
	// ErrInvalidPublicKey indicates the peer's ephemeral public key is malformed or was rejected
	// by the curve (for example, a point not on the curve or a low-order X25519 point).
	ErrInvalidPublicKey = errors.New("invalid ephemeral public key")
	// ErrKeyConsumed is returned when a PrivateKey is used for a second agreement.
	ErrKeyConsumed = errors.New("ephemeral private key already consumed")
)

// AllCurves returns the supported curves in local preference order.
func AllCurves() []Curve {
	return append([]Curve(nil), allCurves...)
}

func (c Curve) String() string {
	switch c {
	case P256:
		return "P-256"
	case P384:
		return "P-384"
	case P521:
		return "P-521"
	case X25519:
		return "X25519"
	}
	return "unknown"
}

func (c Curve) nist() ecdh.Curve {
	switch c {
	case P256:
		return ecdh.P256()
	case P384:
		return ecdh.P384()
	case P521:
		return ecdh.P521()
	}
	return nil
}

// PrivateKey is an ephemeral key-exchange key. It is good for exactly one call to AgreeWith.
type PrivateKey struct {
	curve  Curve
	nist   *ecdh.PrivateKey
	scalar []byte // X25519 only
	public []byte
	used   bool
}

// GeneratePrivateKey creates a fresh ephemeral key using randomness from rng.
func (c Curve) GeneratePrivateKey(rng io.Reader) (*PrivateKey, error) {
	switch c {
	case P256, P384, P521:
		key, err := c.nist().GenerateKey(rng)
		if err != nil {
			return nil, err
		}
		return &PrivateKey{curve: c, nist: key}, nil
	case X25519:
		scalar := make([]byte, curve25519.ScalarSize)
		if _, err := io.ReadFull(rng, scalar); err != nil {
			return nil, err
		}
		return &PrivateKey{curve: c, scalar: scalar}, nil
	}
	return nil, fmt.Errorf("unsupported curve %d", int(c))
}

func (k *PrivateKey) Curve() Curve {
	return k.curve
}

// PublicKey returns the encoded public key, computing it on first use. NIST curves use the
// uncompressed SEC1 point encoding.
func (k *PrivateKey) PublicKey() ([]byte, error) {
	if k.public != nil {
		return k.public, nil
	}
	if k.used {
		return nil, ErrKeyConsumed
	}
	if k.nist != nil {
		k.public = k.nist.PublicKey().Bytes()
		return k.public, nil
	}
	public, err := curve25519.X25519(k.scalar, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	k.public = public
	return k.public, nil
}

func (k *PrivateKey) sharedSecret(peerPublic []byte) ([]byte, error) {
	if k.nist != nil {
		remote, err := k.curve.nist().NewPublicKey(peerPublic)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
		}
		secret, err := k.nist.ECDH(remote)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
		}
		return secret, nil
	}
	if len(peerPublic) != curve25519.PointSize {
		return nil, ErrInvalidPublicKey
	}
	secret, err := curve25519.X25519(k.scalar, peerPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
	}
	return secret, nil
}

func (k *PrivateKey) destroy() {
	k.used = true
	k.nist = nil
	zero(k.scalar)
	k.scalar = nil
}

// AgreeWith performs Diffie-Hellman against peerPublic, expands the shared secret with the KDF and
// returns the keyed session algorithms. The shared secret never leaves this call.
//
// swapped selects the key halves: when false the first half keys the local (sending) direction and
// the second half the remote direction; when true the halves are exchanged.
//
// AgreeWith consumes k: it fails with ErrKeyConsumed on any later call, successful or not.
func (k *PrivateKey) AgreeWith(peerPublic []byte, hash Hash, cipher Cipher, swapped bool) (*SharedAlgorithms, error) {
	if k.used {
		return nil, ErrKeyConsumed
	}
	secret, err := k.sharedSecret(peerPublic)
	k.destroy()
	if err != nil {
		return nil, err
	}
	defer zero(secret)

	stream := DeriveKeys(hash, secret, RequiredBytes(cipher, hash))
	defer zero(stream)
	first, second := SplitKeys(stream, cipher, hash)
	if swapped {
		first, second = second, first
	}
	return NewSharedAlgorithms(cipher, hash, first, second)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
