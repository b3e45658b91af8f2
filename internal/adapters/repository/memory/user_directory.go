// Package memory keeps the user directory in process memory. It backs local
// development without a database and the handler and service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

type UserDirectory struct {
	mu           sync.RWMutex
	nextID       int64
	nextGroupID  int64
	users        map[int64]*domain.User
	groups       map[string]int64
	memberships  map[int64]map[int64]struct{}
	defaultGroup string
	now          func() time.Time
}

var _ ports.UserDirectory = (*UserDirectory)(nil)

func NewUserDirectory(defaultGroup string) *UserDirectory {
	return &UserDirectory{
		users:        make(map[int64]*domain.User),
		groups:       make(map[string]int64),
		memberships:  make(map[int64]map[int64]struct{}),
		defaultGroup: defaultGroup,
		now:          time.Now,
	}
}

func (d *UserDirectory) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var match *domain.User
	for _, u := range d.sorted() {
		if u.Email != email {
			continue
		}
		if !u.IsDeleted() {
			return clone(u), nil
		}
		if includeDeleted && match == nil {
			match = u
		}
	}
	if match == nil {
		return nil, nil
	}
	return clone(match), nil
}

func (d *UserDirectory) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok || u.IsDeleted() {
		return nil, nil
	}
	return clone(u), nil
}

func (d *UserDirectory) FindByRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.sorted() {
		if u.RefreshTokenActive(tokenHash, now) {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (d *UserDirectory) FindBySocialLink(ctx context.Context, provider domain.Provider, providerID string) (*domain.User, error) {
	if providerID == "" {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.sorted() {
		if !u.IsDeleted() && u.ProviderID(provider) == providerID {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (d *UserDirectory) CreateUser(ctx context.Context, user *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range d.users {
		if u.Email == user.Email && !u.IsDeleted() {
			return domain.ErrEmailTaken
		}
	}

	d.nextID++
	now := d.now()
	user.ID = d.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	d.users[user.ID] = clone(user)

	if d.defaultGroup != "" {
		groupID, ok := d.groups[d.defaultGroup]
		if !ok {
			d.nextGroupID++
			groupID = d.nextGroupID
			d.groups[d.defaultGroup] = groupID
		}
		d.memberships[user.ID] = map[int64]struct{}{groupID: {}}
	}
	return nil
}

func (d *UserDirectory) UpdateRefreshToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return nil
	}
	setRefreshToken(u, tokenHash, expiresAt)
	u.UpdatedAt = d.now()
	return nil
}

func (d *UserDirectory) RotateRefreshToken(ctx context.Context, id int64, currentHash, newHash string, expiresAt time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok || u.IsDeleted() || u.RefreshTokenHash == nil || *u.RefreshTokenHash != currentHash {
		return false, nil
	}
	setRefreshToken(u, newHash, expiresAt)
	u.UpdatedAt = d.now()
	return true, nil
}

func (d *UserDirectory) ClearRefreshToken(ctx context.Context, tokenHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range d.users {
		if u.RefreshTokenHash != nil && *u.RefreshTokenHash == tokenHash {
			u.RefreshTokenHash = nil
			u.RefreshTokenExpiresAt = nil
			u.UpdatedAt = d.now()
		}
	}
	return nil
}

func (d *UserDirectory) ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var n int64
	for _, u := range d.users {
		if u.RefreshTokenExpiresAt != nil && !now.Before(*u.RefreshTokenExpiresAt) {
			u.RefreshTokenHash = nil
			u.RefreshTokenExpiresAt = nil
			n++
		}
	}
	return n, nil
}

func (d *UserDirectory) UpdateSocialLink(ctx context.Context, id int64, link domain.SocialLink) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return nil
	}
	if u.ApplySocialLink(link) {
		u.UpdatedAt = d.now()
	}
	return nil
}

// SoftDelete marks a user deleted. Directories backed by a database do this
// outside the auth flow.
func (d *UserDirectory) SoftDelete(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u, ok := d.users[id]; ok {
		now := d.now()
		u.DeletedAt = &now
	}
}

// Groups returns the names of the groups id belongs to.
func (d *UserDirectory) Groups(id int64) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var names []string
	for name, groupID := range d.groups {
		if _, ok := d.memberships[id][groupID]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (d *UserDirectory) sorted() []*domain.User {
	users := make([]*domain.User, 0, len(d.users))
	for _, u := range d.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func setRefreshToken(u *domain.User, tokenHash string, expiresAt time.Time) {
	h := tokenHash
	exp := expiresAt
	u.RefreshTokenHash = &h
	u.RefreshTokenExpiresAt = &exp
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.PasswordHash = cloneString(u.PasswordHash)
	c.Name = cloneString(u.Name)
	c.Avatar = cloneString(u.Avatar)
	c.GoogleID = cloneString(u.GoogleID)
	c.GitHubID = cloneString(u.GitHubID)
	c.RefreshTokenHash = cloneString(u.RefreshTokenHash)
	if u.RefreshTokenExpiresAt != nil {
		t := *u.RefreshTokenExpiresAt
		c.RefreshTokenExpiresAt = &t
	}
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
