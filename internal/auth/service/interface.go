// Package service provides the cryptographic services behind capability
// tokens: token ciphers, the key codec, and application secret loading.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
)

// TokenCipher seals and opens capability token payloads with a shared secret.
// The output is a URL-safe string suitable for an Authorization header.
type TokenCipher interface {
	// Encrypt seals plaintext and returns the encoded token.
	Encrypt(plaintext, secret string) (string, error)

	// Decrypt opens an encoded token and returns the plaintext. Any failure
	// (bad encoding, truncated token, failed authentication) is an error;
	// callers must not distinguish the causes.
	Decrypt(token, secret string) (string, error)
}

// KeyService issues and parses capability tokens. A token binds a user ID to
// the freshness timestamp current at issue time; rotating the stored timestamp
// invalidates every previously issued token for that user.
type KeyService interface {
	// IssueKey seals a token for the user reflecting the given freshness
	// timestamp. Sub-millisecond precision is discarded.
	IssueKey(userID uuid.UUID, generatedAt time.Time) (string, error)

	// ParseKey opens a token and returns its embedded identity and freshness.
	// Returns ErrInvalidToken on any failure.
	ParseKey(token string) (*authDomain.ParsedKey, error)
}

// SecretLoader resolves the application secret at startup, optionally
// unwrapping it through a KMS provider.
type SecretLoader interface {
	LoadSecret(ctx context.Context) (string, error)
}
