package httpapi

import (
	"github.com/golang-jwt/jwt/v5"
)

// sessionVerifier decides whether a session token is acceptable. With no secret
// configured any non-empty token passes; with a secret the token must be an
// unexpired HS256 JWT signed by the portal.
type sessionVerifier struct {
	key []byte
}

func newSessionVerifier(secret string) *sessionVerifier {
	if secret == "" {
		return &sessionVerifier{}
	}
	return &sessionVerifier{key: []byte(secret)}
}

func (v *sessionVerifier) Strict() bool {
	return len(v.key) > 0
}

// Verify returns the token subject ("" in presence-only mode).
func (v *sessionVerifier) Verify(tokenStr string) (string, error) {
	if !v.Strict() {
		return "", nil
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.key, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	sub, _ := claims.GetSubject()
	return sub, nil
}
