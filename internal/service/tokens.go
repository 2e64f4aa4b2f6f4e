package service

import (
	"fmt"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Values of the "typ" claim.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is what a verified access token says about its bearer.
type Claims struct {
	UserID uuid.UUID
	Role   models.Role
}

// tokenClaims is the JWT body of both token kinds. Refresh tokens leave Role empty.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role,omitempty"`
	Type string      `json:"typ"`
}

// tokenIssuer signs and verifies HS256 tokens with one shared secret.
type tokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func (t *tokenIssuer) sign(c *tokenClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// issueAccess returns a signed access token for the user.
func (t *tokenIssuer) issueAccess(userID uuid.UUID, role models.Role) (string, error) {
	now := t.now()
	return t.sign(&tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
		Role: role,
		Type: tokenTypeAccess,
	})
}

// issueRefresh returns a signed refresh token with jti and its expiry.
func (t *tokenIssuer) issueRefresh(userID, jti uuid.UUID) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.refreshTTL)
	s, err := t.sign(&tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   userID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Type: tokenTypeRefresh,
	})
	return s, exp, err
}

// parse verifies signature, issuer, expiry and the "typ" claim.
func (t *tokenIssuer) parse(raw, wantType string) (*tokenClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.Type != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
