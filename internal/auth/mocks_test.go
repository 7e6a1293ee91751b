package auth

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) UserExists(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) OtherUserExists(ctx context.Context, username, email string, excludeID int64) (bool, error) {
	args := m.Called(ctx, username, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) CreateUser(ctx context.Context, user *User, passwordHash string) error {
	args := m.Called(ctx, user, passwordHash)
	if args.Error(0) == nil && user.ID == 0 {
		user.ID = 1
		user.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(ctx context.Context, id int64) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockStorage) GetPasswordHash(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) UpdateUser(ctx context.Context, userID int64, params UpdateUserParams) (*User, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

// MockOAuthStorage is a mock implementation of OAuthStorage.
type MockOAuthStorage struct {
	mock.Mock
}

func (m *MockOAuthStorage) GetUserByGithubID(ctx context.Context, githubID string) (*User, error) {
	args := m.Called(ctx, githubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockOAuthStorage) UpdateGithubAccessToken(ctx context.Context, githubID, accessToken string) error {
	args := m.Called(ctx, githubID, accessToken)
	return args.Error(0)
}

func (m *MockOAuthStorage) CreateGithubUser(ctx context.Context, user *User, accessToken string) error {
	args := m.Called(ctx, user, accessToken)
	if args.Error(0) == nil && user.ID == 0 {
		user.ID = 1
		user.CreatedAt = time.Now()
	}
	return args.Error(0)
}

// MockResetStorage is a mock implementation of ResetStorage.
type MockResetStorage struct {
	mock.Mock
}

func (m *MockResetStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockResetStorage) CreateResetToken(ctx context.Context, t *ResetToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockResetStorage) GetResetToken(ctx context.Context, tok string) (*ResetToken, error) {
	args := m.Called(ctx, tok)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ResetToken), args.Error(1)
}

func (m *MockResetStorage) ConsumeResetToken(ctx context.Context, tok, passwordHash string, now time.Time) error {
	args := m.Called(ctx, tok, passwordHash, now)
	return args.Error(0)
}

// MockResetMailer is a mock implementation of ResetMailer.
type MockResetMailer struct {
	mock.Mock
}

func (m *MockResetMailer) SendPasswordReset(ctx context.Context, toEmail, username, resetToken string) error {
	args := m.Called(ctx, toEmail, username, resetToken)
	return args.Error(0)
}
