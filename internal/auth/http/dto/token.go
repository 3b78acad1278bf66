// Package dto defines request and response payloads for authentication endpoints.
package dto

import "time"

// IssueTokenResponse is the body returned by the token issuance endpoint.
// GeneratedAt is the freshness timestamp sealed inside the key; issuing a new
// key rotates it and revokes every previously issued key.
type IssueTokenResponse struct {
	Key         string    `json:"key"`
	GeneratedAt time.Time `json:"generated_at"`
}
