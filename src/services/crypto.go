package services

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// sealedMarker prefixes every sealed attributes blob. JSON text never starts
// with a NUL byte, so plaintext rows written before a key was configured are
// told apart by format, not by a failed decrypt.
var sealedMarker = []byte{0x00, 'a', 't', '1'}

// AttributeCipher seals profile attribute blobs with AES-256-GCM.
// A nil *AttributeCipher stores and returns plaintext.
type AttributeCipher struct {
	aead cipher.AEAD
}

// NewAttributeCipher builds a cipher from a 32-byte key given as 64 hex
// characters or standard base64. An empty key disables sealing.
func NewAttributeCipher(key string) (*AttributeCipher, error) {
	if key == "" {
		return nil, nil
	}

	raw, err := decodeKey(key)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &AttributeCipher{aead: aead}, nil
}

func decodeKey(key string) ([]byte, error) {
	raw, err := hex.DecodeString(key)
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: expected hex or base64")
		}
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("invalid encryption key: must be 32 bytes, got %d", len(raw))
	}
	return raw, nil
}

// IsSealed reports whether blob was produced by Seal
func IsSealed(blob []byte) bool {
	return bytes.HasPrefix(blob, sealedMarker)
}

// Seal returns marker || nonce || ciphertext. The marker is authenticated as
// associated data.
func (ac *AttributeCipher) Seal(attrs []byte) ([]byte, error) {
	if ac == nil {
		return attrs, nil
	}

	nonce := make([]byte, ac.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealedMarker)+len(nonce)+len(attrs)+ac.aead.Overhead())
	out = append(out, sealedMarker...)
	out = append(out, nonce...)
	return ac.aead.Seal(out, nonce, attrs, sealedMarker), nil
}

// Open reverses Seal. Unsealed blobs are returned unchanged. A sealed blob
// that cannot be opened yields ErrAttributesSealed.
func (ac *AttributeCipher) Open(blob []byte) ([]byte, error) {
	if !IsSealed(blob) {
		return blob, nil
	}
	if ac == nil {
		return nil, fmt.Errorf("%w: no encryption key configured", ErrAttributesSealed)
	}

	body := blob[len(sealedMarker):]
	nonceSize := ac.aead.NonceSize()
	if len(body) < nonceSize+ac.aead.Overhead() {
		return nil, fmt.Errorf("%w: truncated", ErrAttributesSealed)
	}

	attrs, err := ac.aead.Open(nil, body[:nonceSize], body[nonceSize:], sealedMarker)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAttributesSealed, err)
	}
	return attrs, nil
}
