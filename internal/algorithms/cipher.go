package algorithms

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/chacha20"
)

// Cipher identifies a symmetric stream cipher. Every supported cipher keeps a running keystream
// position, so ciphertexts must be decrypted in the order they were produced.
type Cipher int

const (
	AES256 Cipher = iota
	AES128
	ChaCha20
	Blowfish
)

var allCiphers = []Cipher{AES256, AES128, ChaCha20, Blowfish}

// AllCiphers returns the supported ciphers in local preference order.
func AllCiphers() []Cipher {
	return append([]Cipher(nil), allCiphers...)
}

func (c Cipher) String() string {
	switch c {
	case AES256:
		return "AES-256"
	case AES128:
		return "AES-128"
	case ChaCha20:
		return "ChaCha20"
	case Blowfish:
		return "Blowfish"
	}
	return "unknown"
}

func (c Cipher) KeySize() int {
	switch c {
	case AES256, ChaCha20, Blowfish:
		return 32
	case AES128:
		return 16
	}
	panic("algorithms: unknown cipher")
}

func (c Cipher) IVSize() int {
	switch c {
	case AES256, AES128:
		return aes.BlockSize
	case ChaCha20:
		return chacha20.NonceSize
	case Blowfish:
		return blowfish.BlockSize
	}
	panic("algorithms: unknown cipher")
}

func (c Cipher) stream(key, iv []byte) (cipher.Stream, error) {
	if len(key) != c.KeySize() || len(iv) != c.IVSize() {
		return nil, fmt.Errorf("%s requires a %d-byte key and %d-byte IV", c, c.KeySize(), c.IVSize())
	}
	switch c {
	case AES256, AES128:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewCTR(block, iv), nil
	case ChaCha20:
		return chacha20.NewUnauthenticatedCipher(key, iv)
	case Blowfish:
		block, err := blowfish.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewCTR(block, iv), nil
	}
	panic("algorithms: unknown cipher")
}

// Encryptor encrypts successive messages with one continuous keystream.
type Encryptor struct {
	stream cipher.Stream
}

// Decryptor is the receiving counterpart of an Encryptor.
type Decryptor struct {
	stream cipher.Stream
}

func (c Cipher) Encryptor(key, iv []byte) (*Encryptor, error) {
	s, err := c.stream(key, iv)
	if err != nil {
		return nil, err
	}
	return &Encryptor{stream: s}, nil
}

func (c Cipher) Decryptor(key, iv []byte) (*Decryptor, error) {
	s, err := c.stream(key, iv)
	if err != nil {
		return nil, err
	}
	return &Decryptor{stream: s}, nil
}

func (e *Encryptor) Encrypt(plaintext []byte) []byte {
	ciphertext := make([]byte, len(plaintext))
	e.stream.XORKeyStream(ciphertext, plaintext)
	return ciphertext
}

func (d *Decryptor) Decrypt(ciphertext []byte) []byte {
	plaintext := make([]byte, len(ciphertext))
	d.stream.XORKeyStream(plaintext, ciphertext)
	return plaintext
}
