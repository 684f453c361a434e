// Package identity manages the long-term keys that identify peers.
//
// A host holds a [HostKey] and signs handshake transcripts with it. A remote peer is known by its
// public key, which travels in the handshake as a small protobuf message:
//
//	message PublicKey {
//	  KeyType type = 1;
//	  bytes   data = 2;
//	}
//
// Ed25519 keys carry the raw 32-byte key; ECDSA keys carry a PKIX (DER) encoding. A peer's [ID] is
// the SHA-256 digest of the encoded public key.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeyType enumerates supported identity key algorithms. Values match the common libp2p key type
// numbering.
type KeyType int32

const (
	KeyTypeEd25519 KeyType = 1
	KeyTypeECDSA   KeyType = 3
)

func (k KeyType) String() string {
	switch k {
	case KeyTypeEd25519:
		return "ed25519"
	case KeyTypeECDSA:
		return "ecdsa"
	}
	return fmt.Sprintf("KeyType(%d)", int32(k))
}

// ParseKeyType accepts the names printed by KeyType.String.
func ParseKeyType(name string) (KeyType, error) {
	switch strings.ToLower(name) {
	case "ed25519":
		return KeyTypeEd25519, nil
	case "ecdsa", "p256", "p-256":
		return KeyTypeECDSA, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, name)
}

var (
	// ErrInvalidPublicKey indicates a remote peer provided a public key that could not be decoded.
	ErrInvalidPublicKey = errors.New("invalid identity public key")
	// ErrInvalidPrivateKey indicates the local host tried to load an unsupported or malformed
	// private key.
	ErrInvalidPrivateKey = errors.New("invalid identity private key")
	// ErrInvalidSignature is returned by Peer.Verify.
	ErrInvalidSignature = errors.New("invalid identity signature")
	// ErrUnsupportedKeyType indicates a key algorithm outside the supported set.
	ErrUnsupportedKeyType = errors.New("unsupported key type")
)

// IDSize is the length of an ID in bytes.
const IDSize = sha256.Size

// ID identifies a peer. The zero ID means the peer is unknown.
type ID [IDSize]byte

// Unknown is the zero ID, used when any peer is acceptable.
var Unknown ID

// IDFromPublicKeyBytes derives the ID of an encoded public key.
func IDFromPublicKeyBytes(encoded []byte) ID {
	return ID(sha256.Sum256(encoded))
}

// ParseID decodes the hex form produced by ID.String. An empty string yields Unknown.
func ParseID(s string) (ID, error) {
	var id ID
	if s == "" {
		return id, nil
	}
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return id, fmt.Errorf("invalid peer id: %w", err)
	}
	if len(b) != IDSize {
		return id, fmt.Errorf("invalid peer id: expected %d bytes, got %d", IDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (id ID) IsUnknown() bool {
	return id == Unknown
}

func (id ID) String() string {
	if id.IsUnknown() {
		return "<unknown>"
	}
	return hex.EncodeToString(id[:])
}

// ShortString returns an abbreviated form for log messages.
func (id ID) ShortString() string {
	if id.IsUnknown() {
		return "<unknown>"
	}
	return hex.EncodeToString(id[:6])
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
