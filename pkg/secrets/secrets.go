package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of master keys and derived AES-256 keys.
const KeySize = 32

// Sealer encrypts values with AES-GCM under a key derived from a master
// key and a purpose label, so one master key can serve several stores.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the sealing key for purpose from master.
func NewSealer(master []byte, purpose string) (*Sealer, error) {
	if len(master) != KeySize {
		return nil, ErrInvalidKey
	}

	key := make([]byte, KeySize)
	defer clear(key)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte("storytime/"+purpose)), key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return &Sealer{aead: aead}, nil
}

// NewSealerFromString accepts a base64 (standard or URL) encoded master key.
func NewSealerFromString(master, purpose string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(master)
	if err != nil {
		if key, err = base64.URLEncoding.DecodeString(master); err != nil {
			return nil, errors.Join(ErrInvalidKey, err)
		}
	}
	defer clear(key)
	return NewSealer(key, purpose)
}

// Seal returns nonce || ciphertext || tag.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// GenerateKey returns a random master key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
