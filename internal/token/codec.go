// Package token signs and verifies the bearer tokens that carry a visitor
// through the sign-in state machine: anonymous, transition, and session.
package token

import (
	"crypto/rand"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flairhub/flairhub/internal/platform/errors"
)

// Kind discriminates the three token roles. Every verification site names the
// kind it expects so a token can never cross into another endpoint's role.
type Kind string

const (
	// KindAnonymous is the pre-identity credential; its raw value doubles as
	// the anti-CSRF state during the provider redirect.
	KindAnonymous Kind = "anonymous"
	// KindTransition is minted at the provider callback; its subject carries
	// the echoed state value.
	KindTransition Kind = "transition"
	// KindSession is the long-lived credential bound to a linked account.
	KindSession Kind = "session"
)

func (k Kind) valid() bool {
	switch k {
	case KindAnonymous, KindTransition, KindSession:
		return true
	}
	return false
}

// MinSecretLen is the minimum accepted HMAC secret length in bytes.
const MinSecretLen = 32

// Verification failure sentinels. Compare with errors.Is.
var (
	ErrMalformed        = errors.New(errors.CodeTokenMalformed, "token is malformed")
	ErrInvalidSignature = errors.New(errors.CodeTokenInvalidSignature, "token signature is invalid")
	ErrWrongKind        = errors.New(errors.CodeTokenWrongKind, "token kind does not match expectation")
)

type claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"kind"`
}

// Codec issues and verifies HMAC-signed tokens using a single process-wide
// secret. It is a pure value type: no state beyond the secret and the clock.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec builds a codec from a raw secret. The secret must be at least
// MinSecretLen bytes; a missing or short secret is a startup-fatal condition
// for callers.
func NewCodec(secret []byte, now func() time.Time) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d bytes, got %d", MinSecretLen, len(secret))
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: secret, now: now}, nil
}

// Issue signs a token of the given kind. An anonymous token has an empty
// subject; a transition token's subject is the echoed state value; a session
// token's subject is the account id. A random jti makes every issuance unique
// so anonymous tokens can serve as one-shot state nonces.
//
// No exp claim is set. Anonymous and transition tokens are single-use by
// convention; session expiry is a follow-up hardening item.
func (c *Codec) Issue(kind Kind, subject string) (string, error) {
	if !kind.valid() {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate token nonce: %w", err)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(c.now().UTC()),
			ID:       base64.RawURLEncoding.EncodeToString(nonce),
		},
		Kind: kind,
	})
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks the signature of raw and returns its subject. It fails with
// ErrInvalidSignature on a signature mismatch, ErrWrongKind when the embedded
// kind differs from expected, and ErrMalformed when raw does not decode.
func (c *Codec) Verify(raw string, expected Kind) (string, error) {
	if !expected.valid() {
		return "", fmt.Errorf("unknown token kind %q", expected)
	}
	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", ErrInvalidSignature
		}
		return "", ErrMalformed
	}
	if parsed.Kind != expected {
		return "", ErrWrongKind
	}
	return parsed.Subject, nil
}
