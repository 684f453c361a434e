package algorithms

// SharedAlgorithms is the keyed bundle produced by a successful key agreement. The local half
// encrypts and signs outgoing frames; the remote half verifies and decrypts incoming frames.
// Keys and direction are fixed for the lifetime of the bundle.
type SharedAlgorithms struct {
	cipher    Cipher
	hash      Hash
	encryptor *Encryptor
	signer    *Signer
	decryptor *Decryptor
	verifier  *Verifier
}

// NewSharedAlgorithms binds local and remote key material to cipher and hash.
func NewSharedAlgorithms(cipher Cipher, hash Hash, local, remote KeySet) (*SharedAlgorithms, error) {
	encryptor, err := cipher.Encryptor(local.CipherKey, local.IV)
	if err != nil {
		return nil, err
	}
	decryptor, err := cipher.Decryptor(remote.CipherKey, remote.IV)
	if err != nil {
		return nil, err
	}
	return &SharedAlgorithms{
		cipher:    cipher,
		hash:      hash,
		encryptor: encryptor,
		signer:    hash.Signer(local.MACKey),
		decryptor: decryptor,
		verifier:  hash.Verifier(remote.MACKey),
	}, nil
}

func (s *SharedAlgorithms) Cipher() Cipher { return s.cipher }
func (s *SharedAlgorithms) Hash() Hash     { return s.hash }

// Encrypt advances the local keystream.
func (s *SharedAlgorithms) Encrypt(plaintext []byte) []byte {
	return s.encryptor.Encrypt(plaintext)
}

// Decrypt advances the remote keystream.
func (s *SharedAlgorithms) Decrypt(ciphertext []byte) []byte {
	return s.decryptor.Decrypt(ciphertext)
}

func (s *SharedAlgorithms) Sign(data []byte) []byte {
	return s.signer.Sign(data)
}

func (s *SharedAlgorithms) Verify(data, tag []byte) bool {
	return s.verifier.Verify(data, tag)
}

// DigestSize is the length of the MAC trailer on every frame.
func (s *SharedAlgorithms) DigestSize() int {
	return s.verifier.DigestSize()
}
