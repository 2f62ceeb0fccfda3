package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	keySize   = 32
	argonTime = 1
	argonMem  = 64 * 1024
	argonPar  = 4
)

// keySalt is fixed so the same secret always yields the same key across restarts.
var keySalt = []byte("memberdesk/session/v1")

// ErrUnseal is returned when a sealed token cannot be opened with the current key.
var ErrUnseal = errors.New("session: token cannot be unsealed")

// Sealer encrypts backend tokens before they reach the database.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives the sealing key from secret using Argon2id.
// PRE: secret is non-empty
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("session: secret is empty")
	}
	s := &Sealer{}
	copy(s.key[:], argon2.IDKey([]byte(secret), keySalt, argonTime, argonMem, argonPar, keySize))
	return s, nil
}

// Seal returns nonce || secretbox(plaintext).
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(plain), nil
}
