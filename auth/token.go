// Package auth is the identity-verification collaborator of the core. The
// login service mints tokens; the core only verifies them and extracts the
// stable user identity. No credential ever reaches this process.
package auth

import (
	"fmt"
	"time"

	"dm-core/domain"
	"dm-core/errors"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Verifier validates identity tokens signed with a shared HS256 secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Authenticate parses and validates the signature and expiration of a token
// string, returning the verified identity.
func (v *Verifier) Authenticate(tokenString string) (domain.UserID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", errors.ErrInvalidToken
	}
	return domain.UserID(claims.UserID), nil
}

// GenerateToken creates a signed JWT for a specific user. Lives here so the
// test client and the tests can mint tokens compatible with Authenticate;
// the production minting happens in the external login service.
func GenerateToken(secret string, userID domain.UserID, duration time.Duration) (string, error) {
	claims := &CustomClaims{
		UserID: string(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "dm-core",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
