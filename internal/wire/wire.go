// Package wire encodes the handshake messages. The field numbers are fixed for interoperability
// with other implementations:
//
//	message Propose {
//	  optional bytes  rand      = 1;
//	  optional bytes  pubkey    = 2;
//	  optional string exchanges = 3;
//	  optional string ciphers   = 4;
//	  optional string hashes    = 5;
//	}
//
//	message Exchange {
//	  optional bytes epubkey   = 1;
//	  optional bytes signature = 2;
//	}
//
// Messages are encoded directly with protowire; unknown fields are skipped on decode.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrMissingField indicates a message omitted a field the handshake needs.
	ErrMissingField = errors.New("required field missing")
	// ErrWrongWireType indicates a known field arrived with an unexpected wire type.
	ErrWrongWireType = errors.New("unexpected wire type")
)

const (
	proposeRand      protowire.Number = 1
	proposePubkey    protowire.Number = 2
	proposeExchanges protowire.Number = 3
	proposeCiphers   protowire.Number = 4
	proposeHashes    protowire.Number = 5

	exchangeEpubkey   protowire.Number = 1
	exchangeSignature protowire.Number = 2
)

// Propose is the first handshake message.
type Propose struct {
	Rand      []byte
	Pubkey    []byte
	Exchanges string
	Ciphers   string
	Hashes    string
}

// Exchange is the second handshake message.
type Exchange struct {
	Epubkey   []byte
	Signature []byte
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// Marshal encodes p. Fields are written in field-number order.
func (p *Propose) Marshal() []byte {
	var b []byte
	b = appendBytes(b, proposeRand, p.Rand)
	b = appendBytes(b, proposePubkey, p.Pubkey)
	b = appendString(b, proposeExchanges, p.Exchanges)
	b = appendString(b, proposeCiphers, p.Ciphers)
	b = appendString(b, proposeHashes, p.Hashes)
	return b
}

// Validate checks that every field the handshake relies on is present.
func (p *Propose) Validate() error {
	switch {
	case len(p.Rand) == 0:
		return fmt.Errorf("%w: rand", ErrMissingField)
	case len(p.Pubkey) == 0:
		return fmt.Errorf("%w: pubkey", ErrMissingField)
	case p.Exchanges == "":
		return fmt.Errorf("%w: exchanges", ErrMissingField)
	case p.Ciphers == "":
		return fmt.Errorf("%w: ciphers", ErrMissingField)
	case p.Hashes == "":
		return fmt.Errorf("%w: hashes", ErrMissingField)
	}
	return nil
}

func (e *Exchange) Marshal() []byte {
	var b []byte
	b = appendBytes(b, exchangeEpubkey, e.Epubkey)
	b = appendBytes(b, exchangeSignature, e.Signature)
	return b
}

func (e *Exchange) Validate() error {
	if len(e.Epubkey) == 0 {
		return fmt.Errorf("%w: epubkey", ErrMissingField)
	}
	if len(e.Signature) == 0 {
		return fmt.Errorf("%w: signature", ErrMissingField)
	}
	return nil
}

// walk calls field for every length-delimited field in b and skips all other fields. Known field
// numbers carrying another wire type are rejected.
func walk(b []byte, known func(protowire.Number) bool, field func(protowire.Number, []byte)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.BytesType {
			if known(num) {
				return fmt.Errorf("%w for field %d", ErrWrongWireType, num)
			}
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		field(num, v)
	}
	return nil
}

func clone(v []byte) []byte {
	return append([]byte{}, v...)
}

// UnmarshalPropose decodes a Propose message. It does not check for required fields; see
// [Propose.Validate].
func UnmarshalPropose(b []byte) (*Propose, error) {
	var p Propose
	known := func(num protowire.Number) bool { return num >= proposeRand && num <= proposeHashes }
	err := walk(b, known, func(num protowire.Number, v []byte) {
		switch num {
		case proposeRand:
			p.Rand = clone(v)
		case proposePubkey:
			p.Pubkey = clone(v)
		case proposeExchanges:
			p.Exchanges = string(v)
		case proposeCiphers:
			p.Ciphers = string(v)
		case proposeHashes:
			p.Hashes = string(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UnmarshalExchange decodes an Exchange message.
func UnmarshalExchange(b []byte) (*Exchange, error) {
	var e Exchange
	known := func(num protowire.Number) bool { return num == exchangeEpubkey || num == exchangeSignature }
	err := walk(b, known, func(num protowire.Number, v []byte) {
		switch num {
		case exchangeEpubkey:
			e.Epubkey = clone(v)
		case exchangeSignature:
			e.Signature = clone(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}
