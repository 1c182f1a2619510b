package sessions

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/chatline/internal/common"
)

// cookieClaims wraps the opaque session id for the signed cookie envelope.
// The signature only proves the cookie was minted by this server; all
// authorization state stays server-side behind the id.
type cookieClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// CookieCodec signs and verifies the session cookie value (HS256).
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret string) *CookieCodec {
	return &CookieCodec{secret: []byte(secret)}
}

// Encode wraps a session token into a signed cookie value.
func (c *CookieCodec) Encode(token string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, cookieClaims{SessionID: token})

	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", err
	}

	return signed, nil
}

// Decode verifies a cookie value and extracts the session token. Tampered
// or malformed values yield common.ErrInvalidToken.
func (c *CookieCodec) Decode(value string) (string, error) {
	claims := &cookieClaims{}

	t, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}

	if !t.Valid || claims.SessionID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.SessionID, nil
}
