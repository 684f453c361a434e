package algorithms

import "fmt"

// keyExpansionSeed is mixed into every KDF block.
const keyExpansionSeed = "key expansion"

// KeySet is the key material for one direction of a session.
type KeySet struct {
	IV        []byte
	CipherKey []byte
	MACKey    []byte
}

// RequiredBytes returns the KDF output length needed to key both directions.
func RequiredBytes(cipher Cipher, hash Hash) int {
	return 2 * (cipher.IVSize() + cipher.KeySize() + hash.KeySize())
}

// DeriveKeys expands secret into exactly n bytes using an HMAC feedback chain:
//
//	a0      = MAC(secret, seed)
//	block_i = MAC(secret, a_i || seed)
//	a_i+1   = MAC(secret, a_i)
//
// The blocks are concatenated and the result truncated to n bytes. This is not HKDF.
func DeriveKeys(hash Hash, secret []byte, n int) []byte {
	seed := []byte(keyExpansionSeed)
	signer := hash.Signer(secret)
	a := signer.Sign(seed)

	out := make([]byte, 0, n+hash.DigestSize())
	for len(out) < n {
		out = append(out, signer.Sign(a, seed)...)
		a = signer.Sign(a)
	}
	return out[:n]
}

// SplitKeys divides KDF output into two halves and each half into (IV, cipher key, MAC key).
// The stream must be RequiredBytes(cipher, hash) long; anything else is a programming error.
func SplitKeys(stream []byte, cipher Cipher, hash Hash) (first, second KeySet) {
	if len(stream) != RequiredBytes(cipher, hash) {
		panic(fmt.Sprintf("algorithms: key stream is %d bytes, expected %d", len(stream), RequiredBytes(cipher, hash)))
	}
	half := len(stream) / 2
	first = splitHalf(stream[:half], cipher, hash)
	second = splitHalf(stream[half:], cipher, hash)
	return
}

func splitHalf(b []byte, cipher Cipher, hash Hash) KeySet {
	ivSize := cipher.IVSize()
	keySize := cipher.KeySize()
	keys := KeySet{
		IV:        b[:ivSize:ivSize],
		CipherKey: b[ivSize : ivSize+keySize : ivSize+keySize],
		MACKey:    b[ivSize+keySize:],
	}
	if len(keys.MACKey) != hash.KeySize() {
		panic("algorithms: MAC key length does not match hash key size")
	}
	return keys
}
