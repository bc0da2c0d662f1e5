package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failure taxonomy. Callers map these to protocol-level
// rejection codes (HTTP 401, websocket close 4401).
var (
	ErrMalformed        = errors.New("auth: malformed token")
	ErrExpired          = errors.New("auth: token expired")
	ErrInvalidSignature = errors.New("auth: invalid signature")
	ErrNoIdentity       = errors.New("auth: token carries no identity")
)

type ctxKey int

const userKey ctxKey = 1

// WithUser adds a user ID to the context
func WithUser(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, userKey, uid)
}

// UserID extracts the user ID from the context; 0 means unauthenticated
func UserID(ctx context.Context) int64 {
	v := ctx.Value(userKey)
	if v == nil {
		return 0
	}
	return v.(int64)
}

// JWT wraps a signing secret for issuing/verifying bearer tokens
type JWT struct{ secret []byte }

// New creates a new JWT signer/verifier.
func New(secret string) *JWT { return &JWT{secret: []byte(secret)} }

// Verify checks a token and returns the user ID from the sub claim.
// Pure function of the token and the secret; no side effects.
func (j *JWT) Verify(tok string) (int64, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return 0, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return 0, ErrMalformed
		default:
			return 0, ErrInvalidSignature
		}
	}

	sub, _ := claims["sub"].(string)
	uid, convErr := strconv.ParseInt(sub, 10, 64)
	if convErr != nil || uid <= 0 {
		return 0, ErrNoIdentity
	}
	return uid, nil
}

// Sign creates a token for uid with the given TTL
func (j *JWT) Sign(uid int64, ttl time.Duration) (string, error) {
	if uid <= 0 {
		return "", ErrNoIdentity
	}
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(uid, 10),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(j.secret)
}
