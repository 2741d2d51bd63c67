package jwtx

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// hmacKey signs and verifies one token type with one shared secret.
type hmacKey struct {
	typ    TokenType
	secret []byte
	issuer string
	now    func() time.Time
}

func (k *hmacKey) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign %s token: %w", k.typ, err)
	}
	return signed, nil
}

func (k *hmacKey) Verify(token string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(k.now),
	}
	if k.issuer != "" {
		opts = append(opts, jwt.WithIssuer(k.issuer))
	}

	var claims Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return k.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	// Secrets are distinct per type, so this only trips on a forged typ.
	if claims.Type != k.typ {
		return Claims{}, classify(ErrWrongKey)
	}
	if claims.Subject == "" {
		return Claims{}, classify(ErrMalformed)
	}

	return claims, nil
}
