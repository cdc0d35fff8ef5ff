package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the portable authentication material for one client: enough
// to reconnect without a session file on disk.
type Session struct {
	APIID   int    `json:"api_id"`
	UserID  int64  `json:"user_id"`
	DC      string `json:"dc"`
	AuthKey string `json:"auth_key"`
}

// Claims carries the session fields inside the token.
type Claims struct {
	APIID   int    `json:"api_id"`
	UserID  int64  `json:"user_id"`
	DC      string `json:"dc"`
	AuthKey string `json:"auth_key"`
	jwt.RegisteredClaims
}

// Codec signs and verifies portable session tokens with HMAC so tampered
// or foreign tokens are rejected before any connect attempt.
type Codec struct {
	secret []byte
}

// NewCodec builds a codec over the shared signing secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Encode packs a session into a signed compact token.
func (c *Codec) Encode(s Session) (string, error) {
	if s.AuthKey == "" {
		return "", fmt.Errorf("session: empty auth key")
	}
	claims := Claims{
		APIID:   s.APIID,
		UserID:  s.UserID,
		DC:      s.DC,
		AuthKey: s.AuthKey,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies a token and unpacks the session it carries.
func (c *Codec) Decode(tokenStr string) (Session, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		// enforce HMAC
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("session: invalid token: %w", err)
	}
	if !token.Valid {
		return Session{}, fmt.Errorf("session: invalid token")
	}
	if claims.AuthKey == "" {
		return Session{}, fmt.Errorf("session: token missing auth key")
	}
	if claims.APIID <= 0 {
		return Session{}, fmt.Errorf("session: token missing api id")
	}
	return Session{
		APIID:   claims.APIID,
		UserID:  claims.UserID,
		DC:      claims.DC,
		AuthKey: claims.AuthKey,
	}, nil
}
