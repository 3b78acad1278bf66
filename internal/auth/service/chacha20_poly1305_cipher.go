package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/chacha20poly1305"

	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// ChaCha20Poly1305Cipher implements TokenCipher using ChaCha20-Poly1305 with
// a random nonce per encryption. It is the hardened alternative to the
// deterministic AES cipher: the same plaintext yields a different token each
// time, at the cost of losing token determinism.
//
// Key derivation and layout:
//   - key = SHA-256(secret), full 32 bytes
//   - nonce = 12 random bytes per call
//   - token = base64url(nonce || ciphertext || tag), unpadded
type ChaCha20Poly1305Cipher struct{}

// NewChaCha20Poly1305Cipher creates the random-nonce ChaCha20-Poly1305 token cipher.
func NewChaCha20Poly1305Cipher() *ChaCha20Poly1305Cipher {
	return &ChaCha20Poly1305Cipher{}
}

// Encrypt seals plaintext into an unpadded base64url token.
func (c *ChaCha20Poly1305Cipher) Encrypt(plaintext, secret string) (string, error) {
	keySum := sha256.Sum256([]byte(secret))

	aead, err := chacha20poly1305.New(keySum[:])
	if err != nil {
		return "", apperrors.Wrap(err, "failed to create ChaCha20-Poly1305 cipher")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", apperrors.Wrap(err, "failed to generate nonce")
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	token := make([]byte, 0, len(nonce)+len(sealed))
	token = append(token, nonce...)
	token = append(token, sealed...)

	return base64.RawURLEncoding.EncodeToString(token), nil
}

// Decrypt opens a token produced by Encrypt.
func (c *ChaCha20Poly1305Cipher) Decrypt(token, secret string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to decode token")
	}
	if len(raw) <= chacha20poly1305.NonceSize {
		return "", apperrors.New("token is too short")
	}

	keySum := sha256.Sum256([]byte(secret))

	aead, err := chacha20poly1305.New(keySum[:])
	if err != nil {
		return "", apperrors.Wrap(err, "failed to create ChaCha20-Poly1305 cipher")
	}

	nonceSize := aead.NonceSize()
	plaintext, err := aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to decrypt token")
	}

	return string(plaintext), nil
}
