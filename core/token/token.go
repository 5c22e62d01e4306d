// Package token issues and verifies the capability tokens that guard
// follow-up operations on a session. A token is a keyed digest over the
// session id and a single operation scope; nothing is stored, so any holder
// of the signing secret can recompute and verify a token without a lookup,
// and tokens survive process restarts as long as the secret is stable.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Operation scopes. A token authorizes exactly one of these.
const (
	ScopeAudio  = "audio"
	ScopeTrim   = "trim"
	ScopeCancel = "cancel"
	ScopeEditor = "editor"
)

// Authority derives and verifies scoped capability tokens.
type Authority struct {
	secret []byte
}

// NewAuthority creates an Authority signing with the given secret.
func NewAuthority(secret []byte) *Authority {
	return &Authority{secret: secret}
}

// Issue derives the token for (sid, scope). Deterministic, no side effects.
func (a *Authority) Issue(sid, scope string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(sid + ":" + scope))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the token for (sid, scope) and compares it against the
// presented one in constant time. A false result is an authorization
// decision for the caller, not an error.
func (a *Authority) Verify(sid, scope, presented string) bool {
	expected := a.Issue(sid, scope)
	return hmac.Equal([]byte(expected), []byte(presented))
}
