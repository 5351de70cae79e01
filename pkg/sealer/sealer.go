// Package sealer encrypts credentials for transmission to the analysis
// service with a pre-shared AES key.
//
// Sealed values are base64 (standard alphabet) of
// nonce(12) || ciphertext || tag(16), the AES/GCM/NoPadding layout the
// service expects.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/sys/cpu"
)

const (
	nonceSize = 12
	tagSize   = 16
)

var (
	// ErrInvalidKey is returned for keys that are not 16, 24 or 32 bytes.
	ErrInvalidKey = errors.New("sealer: key must be 16, 24 or 32 bytes")

	// ErrMalformed is returned when a sealed value cannot be decoded or
	// fails authentication.
	ErrMalformed = errors.New("sealer: malformed sealed value")
)

// Sealer encrypts and decrypts credential values.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
	Open(encoded string) ([]byte, error)
}

// gcmSealer implements Sealer over any 12-byte-nonce AEAD.
type gcmSealer struct {
	aead cipher.AEAD
	name string
}

// NewNative returns a Sealer using the platform's AES-GCM implementation,
// hardware accelerated where available.
func NewNative(key []byte) (Sealer, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating native gcm: %w", err)
	}

	return &gcmSealer{aead: aead, name: "native"}, nil
}

// NewSoftware returns a Sealer that runs GCM in portable code over the AES
// block function. Its output is interchangeable with NewNative's.
func NewSoftware(key []byte) (Sealer, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCMWithNonceSize(plainBlock{block}, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("creating software gcm: %w", err)
	}

	return &gcmSealer{aead: aead, name: "software"}, nil
}

// New selects the native implementation when the CPU accelerates AES and
// carry-less multiplication, and the software one otherwise.
func New(key []byte) (Sealer, error) {
	if Accelerated() {
		return NewNative(key)
	}
	return NewSoftware(key)
}

// Accelerated reports whether the CPU has AES-GCM instructions.
func Accelerated() bool {
	switch {
	case cpu.X86.HasAES && cpu.X86.HasPCLMULQDQ:
		return true
	case cpu.ARM64.HasAES && cpu.ARM64.HasPMULL:
		return true
	default:
		return false
	}
}

// Name returns "native" or "software" for a Sealer built by this package.
func Name(s Sealer) string {
	if g, ok := s.(*gcmSealer); ok {
		return g.name
	}
	return "unknown"
}

func (s *gcmSealer) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, nonceSize, nonceSize+len(plaintext)+tagSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *gcmSealer) Open(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if len(raw) < nonceSize+tagSize {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrMalformed, len(raw))
	}

	plaintext, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return plaintext, nil
}

func newBlock(key []byte) (cipher.Block, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKey, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return block, nil
}

// plainBlock hides every optional interface of the wrapped block so
// cipher.NewGCM cannot hand off to an assembly implementation.
type plainBlock struct {
	b cipher.Block
}

func (p plainBlock) BlockSize() int          { return p.b.BlockSize() }
func (p plainBlock) Encrypt(dst, src []byte) { p.b.Encrypt(dst, src) }
func (p plainBlock) Decrypt(dst, src []byte) { p.b.Decrypt(dst, src) }
