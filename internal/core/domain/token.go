package domain

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSubject is the identity an access token is minted for.
type TokenSubject struct {
	UserID int64
	Email  string
	Role   Role
}

func (u *User) TokenSubject() TokenSubject {
	return TokenSubject{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// AccessClaims is the payload of a signed access token: sub, email, role,
// iat and exp.
type AccessClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) UserID() (int64, error) {
	if c.Subject == "" {
		return 0, errors.New("missing subject")
	}
	return strconv.ParseInt(c.Subject, 10, 64)
}

// IssuedTokens is the token pair bound to a user at login, OAuth sign-in and
// every refresh.
type IssuedTokens struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}
