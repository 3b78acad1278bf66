// Package domain defines the core entities for caller authentication: the
// resolved principal and the parsed capability key.
package domain

import (
	sessionDomain "github.com/allisson/gatekeeper/internal/session/domain"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

// PrincipalKind identifies how a request was authenticated.
type PrincipalKind string

// Principal kinds.
const (
	// PrincipalBearer is a caller authenticated by a capability token.
	PrincipalBearer PrincipalKind = "bearer"

	// PrincipalSession is a caller authenticated by a provider session cookie.
	PrincipalSession PrincipalKind = "session"

	// PrincipalAnonymous is a caller with no usable credentials.
	PrincipalAnonymous PrincipalKind = "anonymous"
)

// Principal is the outcome of authentication for a single request.
// User is nil if and only if Kind is PrincipalAnonymous. Session is set only
// for PrincipalSession.
type Principal struct {
	Kind    PrincipalKind
	User    *userDomain.User
	Session *sessionDomain.Session
}

// Anonymous returns the principal for an unauthenticated request.
func Anonymous() *Principal {
	return &Principal{Kind: PrincipalAnonymous}
}

// IsAuthenticated reports whether the principal carries an identity.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.Kind != PrincipalAnonymous && p.User != nil
}
