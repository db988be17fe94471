// Package token encodes user claims into signed, expiring JWTs and
// validates presented tokens back into claims. The signature guarantees
// integrity, not confidentiality: holders can read the claims but cannot
// alter them without detection.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-auth-service/internal/model"
)

// Claims carried by every session token. Expiry lives in the registered
// exp claim; the parser enforces it with no leeway.
type Claims struct {
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewCodec builds a codec from the process-wide signing configuration.
// Only HMAC algorithms are accepted; an unknown or non-HMAC name is a
// startup error, not a request-time one.
func NewCodec(secret string, algorithm string, ttl time.Duration) (*Codec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %q is not an HMAC method", algorithm)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token TTL must be positive, got %s", ttl)
	}

	return &Codec{secret: []byte(secret), method: method, ttl: ttl}, nil
}

func (c *Codec) TTL() time.Duration {
	return c.ttl
}

func (c *Codec) Encode(username string, email *string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Decode verifies the signature and expiry of tokenString. It returns
// model.ErrTokenExpired when the signature is valid but exp has passed,
// and model.ErrTokenInvalid for everything else: bad signature, malformed
// structure, or a signing method other than the configured one.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{c.method.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrTokenExpired
		}
		return nil, model.ErrTokenInvalid
	}

	if !parsed.Valid || claims.Username == "" {
		return nil, model.ErrTokenInvalid
	}

	return claims, nil
}
