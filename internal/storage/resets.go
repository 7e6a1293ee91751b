package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/devblog-app/devblog/internal/auth"
	"github.com/devblog-app/devblog/pkg/pg"
)

// CreateResetToken inserts a fresh reset token and fills in the generated id
// and creation timestamp.
func (r *Repository) CreateResetToken(ctx context.Context, t *auth.ResetToken) error {
	query := `
		INSERT INTO password_resets (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, t.UserID, t.Token, t.ExpiresAt).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

func (r *Repository) GetResetToken(ctx context.Context, tok string) (*auth.ResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used, created_at
		FROM password_resets
		WHERE token = $1
	`
	var t auth.ResetToken
	err := r.pool.QueryRow(ctx, query, tok).
		Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, auth.ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return &t, nil
}

// ConsumeResetToken marks the token used and stores the new password hash in
// a single transaction. The conditional update claims the token: of two
// racing redemptions exactly one matches the used = false row, the other
// falls through to classification and gets ErrResetTokenUsed. A token whose
// expires_at equals now is already expired.
func (r *Repository) ConsumeResetToken(ctx context.Context, tok, passwordHash string, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	claim := `
		UPDATE password_resets
		SET used = true
		WHERE token = $1 AND used = false AND expires_at > $2
		RETURNING user_id
	`
	var userID int64
	if err := tx.QueryRow(ctx, claim, tok, now).Scan(&userID); err != nil {
		if !pg.IsNotFound(err) {
			return fmt.Errorf("failed to claim reset token: %w", err)
		}

		// The claim missed: tell apart unknown, spent, and expired tokens.
		var used bool
		var expiresAt time.Time
		lookup := `SELECT used, expires_at FROM password_resets WHERE token = $1`
		if err := tx.QueryRow(ctx, lookup, tok).Scan(&used, &expiresAt); err != nil {
			if pg.IsNotFound(err) {
				return auth.ErrResetTokenNotFound
			}
			return fmt.Errorf("failed to look up reset token: %w", err)
		}
		if used {
			return auth.ErrResetTokenUsed
		}
		if !now.Before(expiresAt) {
			return auth.ErrResetTokenExpired
		}
		// The row was claimed between our update and lookup.
		return auth.ErrResetTokenUsed
	}

	update := `UPDATE users SET password_hash = $2 WHERE id = $1`
	cmd, err := tx.Exec(ctx, update, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
