package secrets

import "errors"

var (
	ErrInvalidKey          = errors.New("secrets: key must be 32 bytes")
	ErrKeyDerivationFailed = errors.New("secrets: key derivation failed")
	ErrInvalidCiphertext   = errors.New("secrets: invalid ciphertext")
	ErrDecryptionFailed    = errors.New("secrets: decryption failed")
)
