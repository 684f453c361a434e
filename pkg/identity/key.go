package identity

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	publicKeyType protowire.Number = 1
	publicKeyData protowire.Number = 2
)

// HostKey is the local identity's private key.
type HostKey struct {
	typ     KeyType
	signer  crypto.Signer
	encoded []byte
}

// GenerateKey creates a new host key of the given type.
func GenerateKey(typ KeyType, rng io.Reader) (*HostKey, error) {
	switch typ {
	case KeyTypeEd25519:
		_, sk, err := ed25519.GenerateKey(rng)
		if err != nil {
			return nil, err
		}
		return NewHostKey(sk)
	case KeyTypeECDSA:
		sk, err := ecdsa.GenerateKey(elliptic.P256(), rng)
		if err != nil {
			return nil, err
		}
		return NewHostKey(sk)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, typ)
}

// NewHostKey wraps an Ed25519 or ECDSA P-256 private key.
func NewHostKey(signer crypto.Signer) (*HostKey, error) {
	var typ KeyType
	var data []byte
	switch sk := signer.(type) {
	case ed25519.PrivateKey:
		typ = KeyTypeEd25519
		data = append([]byte{}, sk.Public().(ed25519.PublicKey)...)
	case *ecdsa.PrivateKey:
		if sk.Curve != elliptic.P256() {
			return nil, fmt.Errorf("%w: only NIST-P256 keys supported", ErrInvalidPrivateKey)
		}
		der, err := x509.MarshalPKIXPublicKey(&sk.PublicKey)
		if err != nil {
			return nil, err
		}
		typ = KeyTypeECDSA
		data = der
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, signer)
	}
	return &HostKey{typ: typ, signer: signer, encoded: marshalPublicKey(typ, data)}, nil
}

func marshalPublicKey(typ KeyType, data []byte) []byte {
	b := protowire.AppendTag(nil, publicKeyType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(typ))
	b = protowire.AppendTag(b, publicKeyData, protowire.BytesType)
	return protowire.AppendBytes(b, data)
}

func (k *HostKey) Type() KeyType {
	return k.typ
}

// PublicKeyBytes returns the encoded public key sent to peers during the handshake.
func (k *HostKey) PublicKeyBytes() []byte {
	return append([]byte{}, k.encoded...)
}

func (k *HostKey) ID() ID {
	return IDFromPublicKeyBytes(k.encoded)
}

// Sign signs data. ECDSA signatures cover the SHA-256 digest of data and are ASN.1 encoded.
func (k *HostKey) Sign(data []byte) ([]byte, error) {
	switch k.typ {
	case KeyTypeEd25519:
		return k.signer.Sign(rand.Reader, data, crypto.Hash(0))
	case KeyTypeECDSA:
		digest := sha256.Sum256(data)
		return k.signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	}
	return nil, ErrUnsupportedKeyType
}

// MarshalPKCS8 returns the DER encoding used for keyring storage.
func (k *HostKey) MarshalPKCS8() ([]byte, error) {
	return x509.MarshalPKCS8PrivateKey(k.signer)
}

// UnmarshalPKCS8 parses a key produced by MarshalPKCS8.
func UnmarshalPKCS8(der []byte) (*HostKey, error) {
	sk, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}
	signer, ok := sk.(crypto.Signer)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}
	return NewHostKey(signer)
}

// LoadPrivateKey loads a host key from a PEM file holding either a PKCS#8 ("PRIVATE KEY") or SEC1
// ("EC PRIVATE KEY") block.
func LoadPrivateKey(filename string) (*HostKey, error) {
	pemBlock, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBlock)
	if block == nil {
		return nil, fmt.Errorf("%w: expected PEM encoding", ErrInvalidPrivateKey)
	}

	if block.Type == "EC PRIVATE KEY" {
		sk, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		return NewHostKey(sk)
	}
	return UnmarshalPKCS8(block.Bytes)
}

// SavePrivateKey writes k to filename as a PKCS#8 PEM block readable only by the owner.
func SavePrivateKey(k *HostKey, filename string) error {
	der, err := k.MarshalPKCS8()
	if err != nil {
		return err
	}
	pemKey := pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return os.WriteFile(filename, pem.EncodeToMemory(&pemKey), 0600)
}

// PublicKeyPEM returns the PKIX PEM encoding of k's public key.
func (k *HostKey) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(k.signer.Public())
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
