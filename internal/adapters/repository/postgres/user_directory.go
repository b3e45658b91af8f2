package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

const userColumns = `id, email, password_hash, role, name, avatar, provider, google_id, github_id,
	client_refresh_token, client_refresh_token_expires_at, created_at, updated_at, deleted_at`

// uniqueViolation is the SQLSTATE raised by a unique index conflict.
const uniqueViolation = "23505"

type userDirectory struct {
	db           *sqlx.DB
	defaultGroup string
}

func NewUserDirectory(db *sql.DB, defaultGroup string) ports.UserDirectory {
	return &userDirectory{
		db:           sqlx.NewDb(db, "postgres"),
		defaultGroup: defaultGroup,
	}
}

func (r *userDirectory) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY deleted_at NULLS FIRST, id LIMIT 1`

	return r.getUser(ctx, query, email)
}

func (r *userDirectory) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return r.getUser(ctx, query, id)
}

func (r *userDirectory) FindByRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE client_refresh_token = $1
			AND client_refresh_token_expires_at > $2
			AND deleted_at IS NULL
		LIMIT 1
	`
	return r.getUser(ctx, query, tokenHash, now)
}

func (r *userDirectory) FindBySocialLink(ctx context.Context, provider domain.Provider, providerID string) (*domain.User, error) {
	var column string
	switch provider {
	case domain.ProviderGoogle:
		column = "google_id"
	case domain.ProviderGitHub:
		column = "github_id"
	default:
		return nil, nil
	}
	if providerID == "" {
		return nil, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1 AND deleted_at IS NULL LIMIT 1`
	return r.getUser(ctx, query, providerID)
}

func (r *userDirectory) CreateUser(ctx context.Context, user *domain.User) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (email, password_hash, role, name, avatar, provider, google_id, github_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowxContext(ctx, query,
		user.Email, user.PasswordHash, user.Role, user.Name, user.Avatar, user.Provider, user.GoogleID, user.GitHubID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if r.defaultGroup != "" {
		if err := r.joinDefaultGroup(ctx, tx, user.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *userDirectory) joinDefaultGroup(ctx context.Context, tx *sqlx.Tx, userID int64) error {
	var groupID int64
	query := `
		INSERT INTO departments (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	if err := tx.GetContext(ctx, &groupID, query, r.defaultGroup); err != nil {
		return fmt.Errorf("failed to find or create default department: %w", err)
	}

	link := `INSERT INTO user_departments (user_id, department_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := tx.ExecContext(ctx, link, userID, groupID); err != nil {
		return fmt.Errorf("failed to link user to default department: %w", err)
	}
	return nil
}

func (r *userDirectory) UpdateRefreshToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET client_refresh_token = $2, client_refresh_token_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, tokenHash, expiresAt)
	return err
}

func (r *userDirectory) RotateRefreshToken(ctx context.Context, id int64, currentHash, newHash string, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE users
		SET client_refresh_token = $3, client_refresh_token_expires_at = $4, updated_at = NOW()
		WHERE id = $1 AND client_refresh_token = $2 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, currentHash, newHash, expiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *userDirectory) ClearRefreshToken(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE users
		SET client_refresh_token = NULL, client_refresh_token_expires_at = NULL, updated_at = NOW()
		WHERE client_refresh_token = $1
	`
	_, err := r.db.ExecContext(ctx, query, tokenHash)
	return err
}

func (r *userDirectory) ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET client_refresh_token = NULL, client_refresh_token_expires_at = NULL
		WHERE client_refresh_token_expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *userDirectory) UpdateSocialLink(ctx context.Context, id int64, link domain.SocialLink) error {
	var googleID, githubID *string
	switch link.Provider {
	case domain.ProviderGoogle:
		googleID = nullable(link.ProviderID)
	case domain.ProviderGitHub:
		githubID = nullable(link.ProviderID)
	}

	query := `
		UPDATE users
		SET google_id = COALESCE(NULLIF(google_id, ''), $2),
			github_id = COALESCE(NULLIF(github_id, ''), $3),
			name = COALESCE(NULLIF(name, ''), $4),
			avatar = COALESCE(NULLIF(avatar, ''), $5),
			provider = $6,
			updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, googleID, githubID, nullable(link.Name), nullable(link.Avatar), link.Provider)
	return err
}

func (r *userDirectory) getUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
