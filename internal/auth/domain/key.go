package domain

import (
	"time"

	"github.com/google/uuid"
)

// KeySeparator joins the user ID and the freshness timestamp inside the
// capability token plaintext.
const KeySeparator = "--"

// ParsedKey is the decrypted content of a capability token.
type ParsedKey struct {
	UserID          uuid.UUID
	FreshnessMillis int64
}

// IssueTokenOutput is the result of issuing a new capability token.
type IssueTokenOutput struct {
	Token       string
	GeneratedAt time.Time
}
