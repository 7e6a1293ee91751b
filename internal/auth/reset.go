package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/devblog-app/devblog/pkg/logger"
)

// resetTokenBytes gives 256 bits of entropy per token.
const resetTokenBytes = 32

// DefaultResetTokenTTL is how long a reset link stays redeemable.
const DefaultResetTokenTTL = 1 * time.Hour

// ResetStorage defines the persistence operations for the reset flow.
type ResetStorage interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateResetToken(ctx context.Context, t *ResetToken) error
	GetResetToken(ctx context.Context, tok string) (*ResetToken, error)
	// ConsumeResetToken atomically marks the token used and stores the new
	// password hash in one transaction. The conditional update guarantees
	// that of two racing redemptions exactly one succeeds; the loser gets
	// ErrResetTokenUsed. Expiry is checked against now with the boundary
	// itself rejected (expires_at == now fails).
	ConsumeResetToken(ctx context.Context, tok, passwordHash string, now time.Time) error
}

// ResetMailer delivers the reset link to the user.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, toEmail, username, resetToken string) error
}

// ResetService implements the password-reset token lifecycle:
// Active -> Used (stored, terminal) or Active -> Expired (time-derived).
type ResetService struct {
	storage    ResetStorage
	mailer     ResetMailer
	tokenTTL   time.Duration
	bcryptCost int
	log        *slog.Logger
	now        func() time.Time
}

type ResetOption func(*ResetService)

// WithResetLogger sets a custom logger for the service.
func WithResetLogger(log *slog.Logger) ResetOption {
	return func(s *ResetService) {
		s.log = log
	}
}

// WithResetTokenTTL overrides the token lifetime.
func WithResetTokenTTL(ttl time.Duration) ResetOption {
	return func(s *ResetService) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithResetBcryptCost overrides the bcrypt cost, mainly to speed up tests.
func WithResetBcryptCost(cost int) ResetOption {
	return func(s *ResetService) {
		s.bcryptCost = cost
	}
}

// WithResetClock overrides the time source, for tests.
func WithResetClock(now func() time.Time) ResetOption {
	return func(s *ResetService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewResetService creates the password-reset service.
func NewResetService(storage ResetStorage, mailer ResetMailer, opts ...ResetOption) *ResetService {
	s := &ResetService{
		storage:    storage,
		mailer:     mailer,
		tokenTTL:   DefaultResetTokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestReset creates a reset token for the account and dispatches the
// reset link. An unknown email succeeds without side effects so the response
// cannot be used to probe for registered addresses. Email delivery happens
// in the background; a delivery failure is logged but never fails the
// request.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	tok := hex.EncodeToString(raw)

	record := &ResetToken{
		UserID:    user.ID,
		Token:     tok,
		ExpiresAt: s.now().Add(s.tokenTTL),
	}
	if err := s.storage.CreateResetToken(ctx, record); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("reset mail dispatch panicked",
					logger.UserID(user.ID),
					slog.Any("panic", r),
					logger.Component("reset"),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.mailer.SendPasswordReset(ctx, email, user.Username, tok); err != nil {
			s.log.Error("failed to send reset email",
				logger.UserID(user.ID),
				logger.Error(err),
				logger.Component("reset"),
			)
		}
	}()

	return nil
}

// ValidateToken is the pre-check before showing the reset form. It has no
// side effect and distinguishes unknown, used, and expired tokens.
func (s *ResetService) ValidateToken(ctx context.Context, tok string) error {
	record, err := s.storage.GetResetToken(ctx, tok)
	if err != nil {
		if errors.Is(err, ErrResetTokenNotFound) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("failed to get reset token: %w", err)
	}

	if record.Used {
		return ErrResetTokenUsed
	}
	if !s.now().Before(record.ExpiresAt) {
		return ErrResetTokenExpired
	}
	return nil
}

// ResetPassword redeems the token and stores the new password hash. The
// validity checks run again inside the storage transaction, so a token can
// never be redeemed twice even under concurrent requests. No session is
// issued; the user logs in again with the new password.
func (s *ResetService) ResetPassword(ctx context.Context, tok, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.storage.ConsumeResetToken(ctx, tok, string(hash), s.now()); err != nil {
		switch {
		case errors.Is(err, ErrResetTokenNotFound),
			errors.Is(err, ErrResetTokenUsed),
			errors.Is(err, ErrResetTokenExpired):
			return err
		default:
			return fmt.Errorf("failed to consume reset token: %w", err)
		}
	}

	s.log.InfoContext(ctx, "password reset completed", logger.Component("reset"))
	return nil
}
