package identity

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// Peer is a remote identity reconstructed from its encoded public key.
type Peer struct {
	id      ID
	typ     KeyType
	ed      ed25519.PublicKey
	ec      *ecdsa.PublicKey
	encoded []byte
}

// PeerFromPublicKeyBytes decodes a public key received from a remote peer.
func PeerFromPublicKeyBytes(encoded []byte) (*Peer, error) {
	var (
		typ     KeyType
		data    []byte
		hasType bool
		hasData bool
	)
	b := encoded
	for len(b) > 0 {
		num, wtyp, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == publicKeyType && wtyp == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, protowire.ParseError(n))
			}
			typ, hasType = KeyType(v), true
			b = b[n:]
		case num == publicKeyData && wtyp == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, protowire.ParseError(n))
			}
			data, hasData = v, true
			b = b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, wtyp, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if !hasType || !hasData {
		return nil, fmt.Errorf("%w: missing key type or data", ErrInvalidPublicKey)
	}

	p := &Peer{
		id:      IDFromPublicKeyBytes(encoded),
		typ:     typ,
		encoded: append([]byte{}, encoded...),
	}
	switch typ {
	case KeyTypeEd25519:
		if len(data) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: bad ed25519 key length %d", ErrInvalidPublicKey, len(data))
		}
		p.ed = append(ed25519.PublicKey{}, data...)
	case KeyTypeECDSA:
		key, err := x509.ParsePKIXPublicKey(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
		}
		ec, ok := key.(*ecdsa.PublicKey)
		if !ok || ec.Curve != elliptic.P256() {
			return nil, fmt.Errorf("%w: only NIST-P256 keys supported", ErrInvalidPublicKey)
		}
		p.ec = ec
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, typ)
	}
	return p, nil
}

func (p *Peer) ID() ID {
	return p.id
}

func (p *Peer) Type() KeyType {
	return p.typ
}

// PublicKeyBytes returns the encoded public key the peer presented.
func (p *Peer) PublicKeyBytes() []byte {
	return append([]byte{}, p.encoded...)
}

// Matches reports whether p is the expected peer. Every peer matches Unknown.
func (p *Peer) Matches(expected ID) bool {
	return expected.IsUnknown() || expected == p.id
}

// Verify checks a signature produced by the peer's HostKey.Sign.
func (p *Peer) Verify(data, signature []byte) error {
	switch p.typ {
	case KeyTypeEd25519:
		if ed25519.Verify(p.ed, data, signature) {
			return nil
		}
	case KeyTypeECDSA:
		digest := sha256.Sum256(data)
		if ecdsa.VerifyASN1(p.ec, digest[:], signature) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func (p *Peer) String() string {
	return p.id.String()
}

// LoadPeerID reads the ID of a peer from a PEM file. The file may hold a PKIX public key
// ("PUBLIC KEY") or, for convenience, a private key in any format LoadPrivateKey understands.
func LoadPeerID(filename string) (ID, error) {
	pemBlock, err := os.ReadFile(filename)
	if err != nil {
		return Unknown, err
	}
	block, _ := pem.Decode(pemBlock)
	if block == nil {
		return Unknown, fmt.Errorf("%w: expected PEM encoding", ErrInvalidPublicKey)
	}
	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return Unknown, err
		}
		switch pk := key.(type) {
		case ed25519.PublicKey:
			return IDFromPublicKeyBytes(marshalPublicKey(KeyTypeEd25519, pk)), nil
		case *ecdsa.PublicKey:
			if pk.Curve != elliptic.P256() {
				return Unknown, ErrInvalidPublicKey
			}
			return IDFromPublicKeyBytes(marshalPublicKey(KeyTypeECDSA, block.Bytes)), nil
		}
		return Unknown, ErrUnsupportedKeyType
	case "PRIVATE KEY", "EC PRIVATE KEY":
		sk, err := LoadPrivateKey(filename)
		if err != nil {
			return Unknown, err
		}
		return sk.ID(), nil
	}
	return Unknown, fmt.Errorf("unrecognized PEM block type %s", block.Type)
}
