package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"

	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

const gcmNonceSize = 12

// AESGCMCipher implements TokenCipher using AES-128-GCM with a synthetic
// nonce, so that encryption is fully deterministic: the same plaintext and
// secret always produce the same token.
//
// Key derivation and layout:
//   - key = SHA-256(secret) truncated to 16 bytes
//   - nonce = SHA-256(plaintext || secret) truncated to 12 bytes
//   - token = base64url(nonce || ciphertext || tag), unpadded
//
// The nonce is derived from the plaintext, so it repeats only when the whole
// (plaintext, secret) pair repeats, in which case the ciphertext is identical
// and nothing new is revealed. Tokens embed a millisecond timestamp, which
// keeps payloads unique per issuance in practice.
type AESGCMCipher struct{}

// NewAESGCMCipher creates the deterministic AES-128-GCM token cipher.
func NewAESGCMCipher() *AESGCMCipher {
	return &AESGCMCipher{}
}

// Encrypt seals plaintext into an unpadded base64url token.
func (a *AESGCMCipher) Encrypt(plaintext, secret string) (string, error) {
	aead, err := a.newAEAD(secret)
	if err != nil {
		return "", err
	}

	nonceSum := sha256.Sum256([]byte(plaintext + secret))
	nonce := nonceSum[:gcmNonceSize]

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	token := make([]byte, 0, gcmNonceSize+len(sealed))
	token = append(token, nonce...)
	token = append(token, sealed...)

	return base64.RawURLEncoding.EncodeToString(token), nil
}

// Decrypt opens a token produced by Encrypt.
func (a *AESGCMCipher) Decrypt(token, secret string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to decode token")
	}
	if len(raw) <= gcmNonceSize {
		return "", apperrors.New("token is too short")
	}

	aead, err := a.newAEAD(secret)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, raw[:gcmNonceSize], raw[gcmNonceSize:], nil)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to decrypt token")
	}

	return string(plaintext), nil
}

func (a *AESGCMCipher) newAEAD(secret string) (cipher.AEAD, error) {
	keySum := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(keySum[:16])
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create AES cipher")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create GCM")
	}

	return aead, nil
}
