package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

// RefreshTokenBytes is the entropy of an opaque refresh token before hex
// encoding.
const RefreshTokenBytes = 48

type Clock func() time.Time

type tokenCodec struct {
	secret []byte
	now    Clock
}

func NewTokenCodec(secret string, now Clock) ports.TokenCodec {
	if now == nil {
		now = time.Now
	}
	return &tokenCodec{
		secret: []byte(secret),
		now:    now,
	}
}

func (c *tokenCodec) Configured() bool {
	return len(c.secret) > 0
}

func (c *tokenCodec) SignAccessToken(subject domain.TokenSubject, ttl time.Duration) (string, error) {
	if !c.Configured() {
		return "", domain.ErrMissingSecret
	}

	now := c.now()
	claims := &domain.AccessClaims{
		Email: subject.Email,
		Role:  subject.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (c *tokenCodec) VerifyAccessToken(tokenString string) (*domain.AccessClaims, bool) {
	if !c.Configured() || tokenString == "" {
		return nil, false
	}

	claims := &domain.AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, false
	}

	if claims.Email == "" || claims.Role == "" {
		return nil, false
	}
	if _, err := claims.UserID(); err != nil {
		return nil, false
	}
	return claims, true
}

func (c *tokenCodec) GenerateRefreshToken() (string, error) {
	b := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the digest under which refresh tokens are stored and looked up.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
