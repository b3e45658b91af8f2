package domain

import (
	"strconv"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
	ProviderGitHub Provider = "GITHUB"
)

// ParseProvider maps a lowercase route name ("google", "github") to a Provider.
func ParseProvider(name string) (Provider, bool) {
	switch Provider(strings.ToUpper(strings.TrimSpace(name))) {
	case ProviderGoogle:
		return ProviderGoogle, true
	case ProviderGitHub:
		return ProviderGitHub, true
	}
	return "", false
}

type User struct {
	ID           int64    `db:"id"`
	Email        string   `db:"email"`
	PasswordHash *string  `db:"password_hash"`
	Role         Role     `db:"role"`
	Name         *string  `db:"name"`
	Avatar       *string  `db:"avatar"`
	Provider     Provider `db:"provider"`
	GoogleID     *string  `db:"google_id"`
	GitHubID     *string  `db:"github_id"`

	// RefreshTokenHash is the SHA-256 digest of the single active refresh
	// token. The raw token is never stored.
	RefreshTokenHash      *string    `db:"client_refresh_token"`
	RefreshTokenExpiresAt *time.Time `db:"client_refresh_token_expires_at"`

	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// RefreshTokenActive reports whether tokenHash is the user's current refresh
// token and has not expired at now.
func (u *User) RefreshTokenActive(tokenHash string, now time.Time) bool {
	if u.IsDeleted() || u.RefreshTokenHash == nil || u.RefreshTokenExpiresAt == nil {
		return false
	}
	return *u.RefreshTokenHash == tokenHash && now.Before(*u.RefreshTokenExpiresAt)
}

// SocialLink carries what an identity provider knows about an account.
type SocialLink struct {
	Provider   Provider
	ProviderID string
	Name       string
	Avatar     string
}

// ProviderID returns the account id stored for p, or "" when unlinked.
func (u *User) ProviderID(p Provider) string {
	var v *string
	switch p {
	case ProviderGoogle:
		v = u.GoogleID
	case ProviderGitHub:
		v = u.GitHubID
	}
	if v == nil {
		return ""
	}
	return *v
}

// ApplySocialLink fills in missing provider id, name and avatar without
// overwriting populated fields, and switches Provider to the link's provider.
// It reports whether anything changed.
func (u *User) ApplySocialLink(link SocialLink) bool {
	changed := false
	fill := func(field **string, value string) {
		if value == "" || (*field != nil && **field != "") {
			return
		}
		v := value
		*field = &v
		changed = true
	}

	switch link.Provider {
	case ProviderGoogle:
		fill(&u.GoogleID, link.ProviderID)
	case ProviderGitHub:
		fill(&u.GitHubID, link.ProviderID)
	}
	fill(&u.Name, link.Name)
	fill(&u.Avatar, link.Avatar)

	if u.Provider != link.Provider {
		u.Provider = link.Provider
		changed = true
	}
	return changed
}

// PublicUser is the projection of User that is safe to hand to clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Role      Role      `json:"role"`
	Avatar    *string   `json:"avatar,omitempty"`
	Provider  Provider  `json:"provider,omitempty"`
	GoogleID  *string   `json:"googleId,omitempty"`
	GitHubID  *string   `json:"githubId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        strconv.FormatInt(u.ID, 10),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Avatar:    u.Avatar,
		Provider:  u.Provider,
		GoogleID:  u.GoogleID,
		GitHubID:  u.GitHubID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
