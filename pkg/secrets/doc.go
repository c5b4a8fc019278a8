// Package secrets seals small values at rest with AES-256-GCM.
//
// A Sealer is bound to a purpose label; HKDF-SHA-256 derives a distinct key
// per purpose from one 32-byte master key, so values sealed for one purpose
// cannot be opened by a Sealer built for another.
//
//	master, _ := secrets.GenerateKey()
//	s, err := secrets.NewSealer(master, "session")
//	sealed, err := s.Seal([]byte("token"))
//	plain, err := s.Open(sealed)
//
// The nonce is prepended to every sealed value.
package secrets
