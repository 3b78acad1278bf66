package service

import (
	"context"
	"encoding/base64"

	"gocloud.dev/secrets"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	"github.com/allisson/gatekeeper/internal/config"
	apperrors "github.com/allisson/gatekeeper/internal/errors"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// kmsSecretLoader implements SecretLoader using gocloud.dev/secrets.
//
// Without a KMS key URI the configured secret is used as-is. With one, the
// configured secret is treated as base64 ciphertext and unwrapped through the
// keeper. Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://,
// base64key://
type kmsSecretLoader struct {
	config *config.Config
}

// NewSecretLoader creates a SecretLoader for the application configuration.
func NewSecretLoader(cfg *config.Config) SecretLoader {
	return &kmsSecretLoader{config: cfg}
}

// LoadSecret resolves the application secret.
func (l *kmsSecretLoader) LoadSecret(ctx context.Context) (string, error) {
	if l.config.AppSecret == "" {
		return "", authDomain.ErrSecretNotConfigured
	}

	if l.config.AppSecretKMSKeyURI == "" {
		return l.config.AppSecret, nil
	}

	keeper, err := secrets.OpenKeeper(ctx, l.config.AppSecretKMSKeyURI)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to open KMS keeper")
	}
	defer func() {
		_ = keeper.Close()
	}()

	ciphertext, err := base64.StdEncoding.DecodeString(l.config.AppSecret)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to decode wrapped secret")
	}

	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to decrypt wrapped secret")
	}

	return string(plaintext), nil
}
