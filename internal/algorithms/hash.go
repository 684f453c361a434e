package algorithms

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Hash identifies a keyed-hash (HMAC) algorithm used both by the KDF and for per-frame MACs.
type Hash int

const (
	SHA256 Hash = iota
	SHA512
	BLAKE2b256
)

// macKeySize is the length of the MAC keys carved out of the KDF output. It is independent of the
// digest size and kept at 20 bytes for compatibility with existing peers.
const macKeySize = 20

var allHashes = []Hash{SHA256, SHA512, BLAKE2b256}

// AllHashes returns the supported hashes in local preference order.
func AllHashes() []Hash {
	return append([]Hash(nil), allHashes...)
}

func (h Hash) String() string {
	switch h {
	case SHA256:
		return "SHA256"
	case SHA512:
		return "SHA512"
	case BLAKE2b256:
		return "BLAKE2b-256"
	}
	return "unknown"
}

// KeySize returns the length of the MAC key this hash is keyed with.
func (h Hash) KeySize() int {
	return macKeySize
}

// DigestSize returns the length of a MAC tag.
func (h Hash) DigestSize() int {
	switch h {
	case SHA256, BLAKE2b256:
		return 32
	case SHA512:
		return 64
	}
	panic("algorithms: unknown hash")
}

func (h Hash) factory() func() hash.Hash {
	switch h {
	case SHA256:
		return sha256.New
	case SHA512:
		return sha512.New
	case BLAKE2b256:
		return func() hash.Hash {
			// An unkeyed BLAKE2b never returns an error.
			b, _ := blake2b.New256(nil)
			return b
		}
	}
	panic("algorithms: unknown hash")
}

// Signer computes MAC tags with a fixed key.
type Signer struct {
	mac hash.Hash
}

// Verifier checks MAC tags produced by a Signer holding the same key.
type Verifier struct {
	mac hash.Hash
}

func (h Hash) Signer(key []byte) *Signer {
	return &Signer{mac: hmac.New(h.factory(), key)}
}

func (h Hash) Verifier(key []byte) *Verifier {
	return &Verifier{mac: hmac.New(h.factory(), key)}
}

// Sign returns the MAC of the concatenation of data.
func (s *Signer) Sign(data ...[]byte) []byte {
	s.mac.Reset()
	for _, d := range data {
		s.mac.Write(d)
	}
	return s.mac.Sum(nil)
}

// Verify reports whether tag is the MAC of data. The comparison is constant-time.
func (v *Verifier) Verify(data, tag []byte) bool {
	v.mac.Reset()
	v.mac.Write(data)
	return hmac.Equal(v.mac.Sum(nil), tag)
}

func (v *Verifier) DigestSize() int {
	return v.mac.Size()
}
