package ports

import "time"

// PasswordHasher produces and checks one-way password digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// Token purposes carried in the "typ" claim.
const (
	TokenPurposeAccess = "access"
	TokenPurposeReset  = "reset"
)

// TokenClaims is the decoded payload of a signed token.
type TokenClaims struct {
	Subject   string
	Purpose   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// TokenCodec issues and verifies time-bounded signed tokens.
type TokenCodec interface {
	Issue(claims TokenClaims, ttl time.Duration) (string, error)
	Decode(token string) (*TokenClaims, error)
}
