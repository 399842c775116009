package server

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateControlToken mints a bearer token for the control plane. Operators
// issue these out of band; the gateway only validates them.
func GenerateControlToken(secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "control",
		"iat": now.Unix(),
		"exp": now.Add(expiry).Unix(),
	})
	return token.SignedString([]byte(secret))
}
