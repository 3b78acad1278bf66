package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	"github.com/allisson/gatekeeper/internal/config"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// keyService implements KeyService on top of a TokenCipher. The sealed
// plaintext is "<userID>--<freshnessMillis>".
type keyService struct {
	cipher TokenCipher
	secret string
}

// NewKeyService creates a KeyService sealing tokens with the given cipher and
// application secret.
func NewKeyService(cipher TokenCipher, secret string) KeyService {
	return &keyService{cipher: cipher, secret: secret}
}

// NewTokenCipher selects the token cipher configured by Config.TokenCipher.
// Unknown values fall back to the deterministic AES-GCM cipher.
func NewTokenCipher(cfg *config.Config) TokenCipher {
	if cfg.TokenCipher == "chacha20-poly1305" {
		return NewChaCha20Poly1305Cipher()
	}
	return NewAESGCMCipher()
}

// IssueKey seals a capability token for the user at the given freshness
// timestamp.
func (k *keyService) IssueKey(userID uuid.UUID, generatedAt time.Time) (string, error) {
	plaintext := userID.String() +
		authDomain.KeySeparator +
		strconv.FormatInt(generatedAt.UnixMilli(), 10)

	token, err := k.cipher.Encrypt(plaintext, k.secret)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to issue capability token")
	}

	return token, nil
}

// ParseKey opens a capability token. Every failure mode collapses into
// ErrInvalidToken so callers cannot probe the token structure.
func (k *keyService) ParseKey(token string) (*authDomain.ParsedKey, error) {
	plaintext, err := k.cipher.Decrypt(token, k.secret)
	if err != nil {
		return nil, authDomain.ErrInvalidToken
	}

	userPart, millisPart, found := strings.Cut(plaintext, authDomain.KeySeparator)
	if !found {
		return nil, authDomain.ErrInvalidToken
	}

	userID, err := uuid.Parse(userPart)
	if err != nil {
		return nil, authDomain.ErrInvalidToken
	}

	millis, err := strconv.ParseInt(millisPart, 10, 64)
	if err != nil {
		return nil, authDomain.ErrInvalidToken
	}

	return &authDomain.ParsedKey{UserID: userID, FreshnessMillis: millis}, nil
}
