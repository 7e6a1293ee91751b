package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/devblog-app/devblog/internal/auth"
	"github.com/devblog-app/devblog/pkg/pg"
)

const userColumns = `id, username, COALESCE(email, ''), COALESCE(github_id, ''), COALESCE(avatar_url, ''), created_at`

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.GithubID, &u.AvatarURL, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// UserExists reports whether any user holds the given username or email.
func (r *Repository) UserExists(ctx context.Context, username, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE username = NULLIF($1, '') OR email = NULLIF($2, '')
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// OtherUserExists reports whether a user other than excludeID holds the given
// username or email. Empty strings match nothing.
func (r *Repository) OtherUserExists(ctx context.Context, username, email string, excludeID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE (username = NULLIF($1, '') OR email = NULLIF($2, '')) AND id <> $3
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, username, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// CreateUser inserts a password-authenticated user and fills in the
// generated id and creation timestamp.
func (r *Repository) CreateUser(ctx context.Context, user *auth.User, passwordHash string) error {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, user.Username, user.Email, passwordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetPasswordHash returns the stored bcrypt hash, or an empty string for
// accounts that authenticate only through OAuth.
func (r *Repository) GetPasswordHash(ctx context.Context, userID int64) (string, error) {
	query := `SELECT COALESCE(password_hash, '') FROM users WHERE id = $1`
	var hash string
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&hash); err != nil {
		if pg.IsNotFound(err) {
			return "", auth.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}
	return hash, nil
}

// UpdateUser applies the non-nil fields and returns the updated record.
func (r *Repository) UpdateUser(ctx context.Context, userID int64, params auth.UpdateUserParams) (*auth.User, error) {
	query := `
		UPDATE users
		SET username = COALESCE($2, username),
		    email = COALESCE($3, email),
		    password_hash = COALESCE($4, password_hash)
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, query, userID, params.Username, params.Email, params.PasswordHash))
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, auth.ErrUserNotFound
		}
		if pg.IsUniqueViolation(err) {
			return nil, auth.ErrUserExists
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUserByGithubID(ctx context.Context, githubID string) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE github_id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, githubID))
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateGithubAccessToken refreshes the stored provider token for an
// already-federated user.
func (r *Repository) UpdateGithubAccessToken(ctx context.Context, githubID, accessToken string) error {
	query := `UPDATE users SET github_access_token = $2 WHERE github_id = $1`
	cmd, err := r.pool.Exec(ctx, query, githubID, accessToken)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// CreateGithubUser inserts an OAuth-only user (no password hash) and fills
// in the generated id and creation timestamp.
func (r *Repository) CreateGithubUser(ctx context.Context, user *auth.User, accessToken string) error {
	query := `
		INSERT INTO users (username, email, github_id, avatar_url, github_access_token)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.GithubID, user.AvatarURL, accessToken,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
