package identity

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

var keyTypes = []KeyType{KeyTypeEd25519, KeyTypeECDSA}

func TestSignVerify(t *testing.T) {
	message := []byte("handshake transcript")
	for _, typ := range keyTypes {
		sk, err := GenerateKey(typ, rand.Reader)
		if err != nil {
			t.Fatalf("%s: key generation failed: %s", typ, err)
		}
		peer, err := PeerFromPublicKeyBytes(sk.PublicKeyBytes())
		if err != nil {
			t.Fatalf("%s: failed to decode public key: %s", typ, err)
		}
		if peer.ID() != sk.ID() {
			t.Errorf("%s: peer ID %s doesn't match host ID %s", typ, peer.ID(), sk.ID())
		}
		if peer.Type() != typ {
			t.Errorf("Decoded key type %s, expected %s", peer.Type(), typ)
		}
		sig, err := sk.Sign(message)
		if err != nil {
			t.Fatalf("%s: signing failed: %s", typ, err)
		}
		if err := peer.Verify(message, sig); err != nil {
			t.Errorf("%s: valid signature rejected: %s", typ, err)
		}
		tampered := append([]byte{}, message...)
		tampered[0] ^= 1
		if err := peer.Verify(tampered, sig); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("%s: tampered message accepted", typ)
		}
	}
}

func TestMatches(t *testing.T) {
	a, _ := GenerateKey(KeyTypeEd25519, rand.Reader)
	b, _ := GenerateKey(KeyTypeEd25519, rand.Reader)
	peer, err := PeerFromPublicKeyBytes(a.PublicKeyBytes())
	if err != nil {
		t.Fatal(err)
	}
	if !peer.Matches(Unknown) {
		t.Error("Peer should match Unknown")
	}
	if !peer.Matches(a.ID()) {
		t.Error("Peer should match its own ID")
	}
	if peer.Matches(b.ID()) {
		t.Error("Peer matched a different ID")
	}
}

func TestInvalidPublicKeys(t *testing.T) {
	sk, _ := GenerateKey(KeyTypeEd25519, rand.Reader)
	good := sk.PublicKeyBytes()

	short := protowire.AppendTag(nil, publicKeyType, protowire.VarintType)
	short = protowire.AppendVarint(short, uint64(KeyTypeEd25519))
	short = protowire.AppendTag(short, publicKeyData, protowire.BytesType)
	short = protowire.AppendBytes(short, []byte{1, 2, 3})

	rsa := protowire.AppendTag(nil, publicKeyType, protowire.VarintType)
	rsa = protowire.AppendVarint(rsa, 0)
	rsa = protowire.AppendTag(rsa, publicKeyData, protowire.BytesType)
	rsa = protowire.AppendBytes(rsa, []byte{1, 2, 3})

	tests := map[string][]byte{
		"empty":     nil,
		"truncated": good[:len(good)-1],
		"short":     short,
		"garbage":   {0xff, 0xff},
	}
	for name, encoded := range tests {
		if _, err := PeerFromPublicKeyBytes(encoded); !errors.Is(err, ErrInvalidPublicKey) {
			t.Errorf("%s: expected ErrInvalidPublicKey, got %v", name, err)
		}
	}
	if _, err := PeerFromPublicKeyBytes(rsa); !errors.Is(err, ErrUnsupportedKeyType) {
		t.Errorf("Expected ErrUnsupportedKeyType, got %v", err)
	}
}

func TestRejectsOtherCurves(t *testing.T) {
	sk, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewHostKey(sk); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Errorf("Expected ErrInvalidPrivateKey for P-384 key, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	for _, typ := range keyTypes {
		sk, _ := GenerateKey(typ, rand.Reader)
		filename := filepath.Join(dir, typ.String()+".pem")
		if err := SavePrivateKey(sk, filename); err != nil {
			t.Fatalf("%s: save failed: %s", typ, err)
		}
		loaded, err := LoadPrivateKey(filename)
		if err != nil {
			t.Fatalf("%s: load failed: %s", typ, err)
		}
		if !bytes.Equal(loaded.PublicKeyBytes(), sk.PublicKeyBytes()) {
			t.Errorf("%s: loaded key differs", typ)
		}

		publicFile := filepath.Join(dir, typ.String()+".pub")
		publicPEM, err := sk.PublicKeyPEM()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(publicFile, publicPEM, 0644); err != nil {
			t.Fatal(err)
		}
		for _, f := range []string{filename, publicFile} {
			id, err := LoadPeerID(f)
			if err != nil {
				t.Errorf("%s: LoadPeerID(%s) failed: %s", typ, f, err)
			} else if id != sk.ID() {
				t.Errorf("%s: LoadPeerID(%s) returned %s, expected %s", typ, f, id, sk.ID())
			}
		}
	}
	if _, err := LoadPrivateKey(filepath.Join(dir, "does_not_exist.pem")); err == nil {
		t.Error("Loaded a key from a missing file")
	}
	notPEM := filepath.Join(dir, "not_pem.pem")
	os.WriteFile(notPEM, []byte("hello"), 0600)
	if _, err := LoadPrivateKey(notPEM); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Errorf("Expected ErrInvalidPrivateKey, got %v", err)
	}
}

func TestPKCS8(t *testing.T) {
	sk, _ := GenerateKey(KeyTypeECDSA, rand.Reader)
	der, err := sk.MarshalPKCS8()
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := UnmarshalPKCS8(der)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID() != sk.ID() {
		t.Error("PKCS8 round trip changed the key")
	}
	if _, err := UnmarshalPKCS8([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Errorf("Expected ErrInvalidPrivateKey, got %v", err)
	}
}

func TestParseID(t *testing.T) {
	sk, _ := GenerateKey(KeyTypeEd25519, rand.Reader)
	id, err := ParseID(sk.ID().String())
	if err != nil || id != sk.ID() {
		t.Errorf("ParseID round trip failed: %v", err)
	}
	if id, err := ParseID(""); err != nil || !id.IsUnknown() {
		t.Error("Empty string should parse to Unknown")
	}
	if _, err := ParseID("abcd"); err == nil {
		t.Error("Short ID parsed without error")
	}
	if Unknown.String() != "<unknown>" {
		t.Errorf("Unexpected Unknown string %q", Unknown.String())
	}
	if _, err := ParseKeyType("rsa"); !errors.Is(err, ErrUnsupportedKeyType) {
		t.Error("Expected ErrUnsupportedKeyType")
	}
}
