// Package auth implements the authentication and authorization boundary:
// password hashing, session token issuance, GitHub OAuth federation, the
// password-reset token lifecycle, and profile management.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/devblog-app/devblog/pkg/jwt"
	"github.com/devblog-app/devblog/pkg/logger"
)

// Storage defines the user persistence operations required by the
// password-based flows. Implementations map store-level errors to the
// sentinels in errors.go.
type Storage interface {
	// UserExists reports whether any user has the given username or email.
	UserExists(ctx context.Context, username, email string) (bool, error)
	// OtherUserExists reports whether a user other than excludeID has the
	// given username or email. Empty strings match nothing.
	OtherUserExists(ctx context.Context, username, email string, excludeID int64) (bool, error)
	// CreateUser persists a new user with the given password hash and fills
	// in the generated id and creation timestamp.
	CreateUser(ctx context.Context, user *User, passwordHash string) error
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// GetPasswordHash returns the stored hash for the user, or an empty
	// string for accounts that authenticate only through OAuth.
	GetPasswordHash(ctx context.Context, userID int64) (string, error)
	// UpdateUser applies the non-nil fields and returns the updated record.
	UpdateUser(ctx context.Context, userID int64, params UpdateUserParams) (*User, error)
}

// Service provides registration, login, and profile management backed by
// bcrypt password hashing and stateless session tokens.
type Service struct {
	storage    Storage
	sessions   *jwt.Service
	bcryptCost int
	log        *slog.Logger
}

type ServiceOption func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// WithBcryptCost overrides the bcrypt cost, mainly to speed up tests.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

// NewService creates the password authentication service.
func NewService(storage Storage, sessions *jwt.Service, opts ...ServiceOption) *Service {
	s := &Service{
		storage:    storage,
		sessions:   sessions,
		bcryptCost: bcrypt.DefaultCost,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user with a hashed password and returns a session
// token. Username and email comparisons are case-sensitive as stored.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, string, error) {
	exists, err := s.storage.UserExists(ctx, username, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, "", ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Username: username,
		Email:    email,
	}
	if err := s.storage.CreateUser(ctx, user, string(hash)); err != nil {
		// A concurrent registration may win the uniqueness race; surface it
		// the same way as the pre-check.
		if errors.Is(err, ErrUserExists) {
			return nil, "", ErrUserExists
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	tok, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	s.log.InfoContext(ctx, "user registered", logger.UserID(user.ID), logger.Component("auth"))
	return user, tok, nil
}

// Login verifies email and password and returns a session token. Unknown
// email, OAuth-only account, and wrong password all produce the identical
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	hash, err := s.storage.GetPasswordHash(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}
	if hash == "" {
		return "", ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	tok, err := s.sessions.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}
	return tok, nil
}

// CurrentUser returns the public fields for the authenticated user.
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*User, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfileParams carries the optional profile changes. CurrentPassword
// is consulted only when Password is set.
type UpdateProfileParams struct {
	Username        string
	Email           string
	Password        string
	CurrentPassword string
}

// UpdateProfile updates the supplied fields only. Changing the password on
// an account that already has one requires the current password; accounts
// without one (OAuth-only) may set a first password freely.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, params UpdateProfileParams) (*User, error) {
	if params.Username == "" && params.Email == "" && params.Password == "" {
		return nil, ErrNoFieldsToUpdate
	}

	if params.Username != "" || params.Email != "" {
		taken, err := s.storage.OtherUserExists(ctx, params.Username, params.Email, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check uniqueness: %w", err)
		}
		if taken {
			return nil, ErrUserExists
		}
	}

	update := UpdateUserParams{}
	if params.Username != "" {
		update.Username = &params.Username
	}
	if params.Email != "" {
		update.Email = &params.Email
	}

	if params.Password != "" {
		hash, err := s.storage.GetPasswordHash(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get password hash: %w", err)
		}
		if hash != "" {
			if params.CurrentPassword == "" {
				return nil, ErrPasswordRequired
			}
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(params.CurrentPassword)) != nil {
				return nil, ErrInvalidCredentials
			}
		}

		newHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hashStr := string(newHash)
		update.PasswordHash = &hashStr
	}

	user, err := s.storage.UpdateUser(ctx, userID, update)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.log.InfoContext(ctx, "profile updated", logger.UserID(userID), logger.Component("auth"))
	return user, nil
}

// VerifyPassword checks the candidate password against the stored hash
// without mutating anything. UI flows use it to gate the password-change
// form.
func (s *Service) VerifyPassword(ctx context.Context, userID int64, password string) error {
	hash, err := s.storage.GetPasswordHash(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrNoPasswordSet
		}
		return fmt.Errorf("failed to get password hash: %w", err)
	}
	if hash == "" {
		return ErrNoPasswordSet
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}
