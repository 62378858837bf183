package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents access token claims. The subject is the user id.
type Claims struct {
	Email  string   `json:"email,omitempty"`
	Groups []string `json:"groups,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token subject
func (c *Claims) UserID() string {
	return c.Subject
}

// JWTManager issues and verifies HMAC-signed access tokens
type JWTManager struct {
	secret         []byte
	accessTokenTTL time.Duration
	issuer         string
	now            func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTTL time.Duration, issuer string) *JWTManager {
	if issuer == "" {
		issuer = "energy-agent"
	}
	return &JWTManager{
		secret:         []byte(secret),
		accessTokenTTL: accessTTL,
		issuer:         issuer,
		now:            time.Now,
	}
}

// GenerateAccessToken issues a token for userID
func (m *JWTManager) GenerateAccessToken(userID, email string, groups ...string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}

	now := m.now()
	claims := Claims{
		Email:  email,
		Groups: groups,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateAccessToken validates an access token and returns the claims
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

// AccessTokenTTL returns the access token TTL
func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.accessTokenTTL
}
