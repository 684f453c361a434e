package wire

import (
	"bytes"
	"errors"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestProposeEncoding(t *testing.T) {
	p := Propose{
		Rand:      []byte{1, 2},
		Pubkey:    []byte{3},
		Exchanges: "P-256",
		Ciphers:   "AES-256",
		Hashes:    "SHA256",
	}
	expected := []byte{0x0a, 0x02, 0x01, 0x02, 0x12, 0x01, 0x03}
	expected = append(expected, 0x1a, 0x05)
	expected = append(expected, "P-256"...)
	expected = append(expected, 0x22, 0x07)
	expected = append(expected, "AES-256"...)
	expected = append(expected, 0x2a, 0x06)
	expected = append(expected, "SHA256"...)

	encoded := p.Marshal()
	if !bytes.Equal(encoded, expected) {
		t.Fatalf("Unexpected encoding: %02x", encoded)
	}
	decoded, err := UnmarshalPropose(encoded)
	if err != nil {
		t.Fatalf("Decoding failed: %s", err)
	}
	if !bytes.Equal(decoded.Rand, p.Rand) || !bytes.Equal(decoded.Pubkey, p.Pubkey) ||
		decoded.Exchanges != p.Exchanges || decoded.Ciphers != p.Ciphers || decoded.Hashes != p.Hashes {
		t.Errorf("Decoded %+v, expected %+v", decoded, p)
	}
	if err := decoded.Validate(); err != nil {
		t.Errorf("Complete proposal failed validation: %s", err)
	}
}

func TestProposeMissingFields(t *testing.T) {
	p, err := UnmarshalPropose((&Propose{Rand: []byte{1}, Pubkey: []byte{2}}).Marshal())
	if err != nil {
		t.Fatalf("Decoding failed: %s", err)
	}
	if err := p.Validate(); !errors.Is(err, ErrMissingField) {
		t.Errorf("Expected ErrMissingField, got %v", err)
	}
	empty, err := UnmarshalPropose(nil)
	if err != nil {
		t.Fatalf("Empty message should decode: %s", err)
	}
	if empty.Validate() == nil {
		t.Error("Empty proposal passed validation")
	}
}

func TestUnknownFieldsSkipped(t *testing.T) {
	e := Exchange{Epubkey: []byte{4, 5}, Signature: []byte{6}}
	b := protowire.AppendTag(nil, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 300)
	b = append(b, e.Marshal()...)
	b = protowire.AppendTag(b, 10, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("ignored"))

	decoded, err := UnmarshalExchange(b)
	if err != nil {
		t.Fatalf("Decoding failed: %s", err)
	}
	if !bytes.Equal(decoded.Epubkey, e.Epubkey) || !bytes.Equal(decoded.Signature, e.Signature) {
		t.Errorf("Decoded %+v, expected %+v", decoded, e)
	}
}

func TestMalformedMessages(t *testing.T) {
	good := (&Exchange{Epubkey: []byte{1, 2, 3}, Signature: []byte{4}}).Marshal()
	if _, err := UnmarshalExchange(good[:len(good)-1]); err == nil {
		t.Error("Truncated message decoded without error")
	}

	wrongType := protowire.AppendTag(nil, 1, protowire.VarintType)
	wrongType = protowire.AppendVarint(wrongType, 1)
	if _, err := UnmarshalExchange(wrongType); !errors.Is(err, ErrWrongWireType) {
		t.Errorf("Expected ErrWrongWireType, got %v", err)
	}
	if _, err := UnmarshalPropose([]byte{0xff}); err == nil {
		t.Error("Garbage decoded without error")
	}
}

func TestDecodedFieldsDoNotAlias(t *testing.T) {
	encoded := (&Exchange{Epubkey: []byte{1, 2, 3}, Signature: []byte{4}}).Marshal()
	decoded, err := UnmarshalExchange(encoded)
	if err != nil {
		t.Fatal(err)
	}
	encoded[2] ^= 0xff
	if decoded.Epubkey[0] != 1 {
		t.Error("Decoded field aliases input buffer")
	}
}
