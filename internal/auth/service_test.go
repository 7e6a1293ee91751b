package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/devblog-app/devblog/pkg/jwt"
)

const testSecret = "test-secret-key-at-least-32-bytes!!"

func newTestSessions(t *testing.T) *jwt.Service {
	t.Helper()
	svc, err := jwt.New(testSecret)
	require.NoError(t, err)
	return svc
}

func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates user and returns session token", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		sessions := newTestSessions(t)
		svc := NewService(storage, sessions, WithBcryptCost(bcrypt.MinCost))

		storage.On("UserExists", mock.Anything, "alice", "alice@example.com").Return(false, nil)
		storage.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *User) bool {
			return u.Username == "alice" && u.Email == "alice@example.com"
		}), mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")) == nil
		})).Return(nil)

		user, tok, err := svc.Register(context.Background(), "alice", "alice@example.com", "s3cret-pass")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice", user.Username)

		userID, err := sessions.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, user.ID, userID)

		storage.AssertExpectations(t)
	})

	t.Run("conflict when email or username taken", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t), WithBcryptCost(bcrypt.MinCost))

		storage.On("UserExists", mock.Anything, "alice", "alice@example.com").Return(true, nil)

		_, _, err := svc.Register(context.Background(), "alice", "alice@example.com", "pw")
		assert.ErrorIs(t, err, ErrUserExists)
		storage.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("conflict when concurrent registration wins the race", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t), WithBcryptCost(bcrypt.MinCost))

		storage.On("UserExists", mock.Anything, "alice", "alice@example.com").Return(false, nil)
		storage.On("CreateUser", mock.Anything, mock.Anything, mock.Anything).Return(ErrUserExists)

		_, _, err := svc.Register(context.Background(), "alice", "alice@example.com", "pw")
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	t.Run("returns token for valid credentials", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		sessions := newTestSessions(t)
		svc := NewService(storage, sessions)

		user := &User{ID: 42, Username: "alice", Email: "alice@example.com"}
		storage.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(user, nil)
		storage.On("GetPasswordHash", mock.Anything, int64(42)).Return(testHash(t, "s3cret-pass"), nil)

		tok, err := svc.Login(context.Background(), "alice@example.com", "s3cret-pass")
		require.NoError(t, err)

		userID, err := sessions.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, int64(42), userID)
	})

	t.Run("identical error for unknown email, oauth-only account, and wrong password", func(t *testing.T) {
		t.Parallel()

		user := &User{ID: 42, Email: "alice@example.com"}

		cases := []struct {
			name  string
			setup func(storage *MockStorage)
		}{
			{
				name: "unknown email",
				setup: func(storage *MockStorage) {
					storage.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(nil, ErrUserNotFound)
				},
			},
			{
				name: "oauth-only account without password hash",
				setup: func(storage *MockStorage) {
					storage.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(user, nil)
					storage.On("GetPasswordHash", mock.Anything, int64(42)).Return("", nil)
				},
			},
			{
				name: "wrong password",
				setup: func(storage *MockStorage) {
					storage.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(user, nil)
					storage.On("GetPasswordHash", mock.Anything, int64(42)).Return(testHash(t, "correct-pass"), nil)
				},
			},
		}

		for _, tc := range cases {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				storage := &MockStorage{}
				tc.setup(storage)
				svc := NewService(storage, newTestSessions(t))

				_, err := svc.Login(context.Background(), "alice@example.com", "wrong-pass")
				assert.ErrorIs(t, err, ErrInvalidCredentials)
			})
		}
	})
}

func TestService_VerifyHashRoundTrip(t *testing.T) {
	t.Parallel()

	// hash(p) verifies p and only p; each call salts freshly.
	h1, err := bcrypt.GenerateFromPassword([]byte("password-one"), bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := bcrypt.GenerateFromPassword([]byte("password-one"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, string(h1), string(h2), "fresh salt per call")
	assert.NoError(t, bcrypt.CompareHashAndPassword(h1, []byte("password-one")))
	assert.Error(t, bcrypt.CompareHashAndPassword(h1, []byte("password-two")))
}

func TestService_CurrentUser(t *testing.T) {
	t.Parallel()

	t.Run("returns public fields", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		user := &User{ID: 42, Username: "alice", Email: "alice@example.com"}
		storage.On("GetUserByID", mock.Anything, int64(42)).Return(user, nil)

		got, err := svc.CurrentUser(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("not found when record is gone", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		storage.On("GetUserByID", mock.Anything, int64(42)).Return(nil, ErrUserNotFound)

		_, err := svc.CurrentUser(context.Background(), 42)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestService_UpdateProfile(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty update", func(t *testing.T) {
		t.Parallel()

		svc := NewService(&MockStorage{}, newTestSessions(t))
		_, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileParams{})
		assert.ErrorIs(t, err, ErrNoFieldsToUpdate)
	})

	t.Run("conflict when username or email belongs to another user", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		storage.On("OtherUserExists", mock.Anything, "bob", "", int64(42)).Return(true, nil)

		_, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileParams{Username: "bob"})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("updates only supplied fields", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		updated := &User{ID: 42, Username: "bob"}
		storage.On("OtherUserExists", mock.Anything, "bob", "", int64(42)).Return(false, nil)
		storage.On("UpdateUser", mock.Anything, int64(42), mock.MatchedBy(func(p UpdateUserParams) bool {
			return p.Username != nil && *p.Username == "bob" && p.Email == nil && p.PasswordHash == nil
		})).Return(updated, nil)

		got, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileParams{Username: "bob"})
		require.NoError(t, err)
		assert.Equal(t, updated, got)
	})

	t.Run("password change requires verified current password", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t), WithBcryptCost(bcrypt.MinCost))

		storage.On("GetPasswordHash", mock.Anything, int64(42)).Return(testHash(t, "old-pass"), nil)

		_, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileParams{Password: "new-pass"})
		assert.ErrorIs(t, err, ErrPasswordRequired)

		_, err = svc.UpdateProfile(context.Background(), 42, UpdateProfileParams{
			Password:        "new-pass",
			CurrentPassword: "wrong-old",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("oauth-only account sets first password without verification", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t), WithBcryptCost(bcrypt.MinCost))

		updated := &User{ID: 42, Username: "alice"}
		storage.On("GetPasswordHash", mock.Anything, int64(42)).Return("", nil)
		storage.On("UpdateUser", mock.Anything, int64(42), mock.MatchedBy(func(p UpdateUserParams) bool {
			return p.PasswordHash != nil &&
				bcrypt.CompareHashAndPassword([]byte(*p.PasswordHash), []byte("first-pass")) == nil
		})).Return(updated, nil)

		_, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileParams{Password: "first-pass"})
		require.NoError(t, err)
	})
}

func TestService_VerifyPassword(t *testing.T) {
	t.Parallel()

	t.Run("succeeds on match", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		storage.On("GetPasswordHash", mock.Anything, int64(42)).Return(testHash(t, "s3cret"), nil)

		assert.NoError(t, svc.VerifyPassword(context.Background(), 42, "s3cret"))
	})

	t.Run("unauthorized on mismatch", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		storage.On("GetPasswordHash", mock.Anything, int64(42)).Return(testHash(t, "s3cret"), nil)

		assert.ErrorIs(t, svc.VerifyPassword(context.Background(), 42, "nope"), ErrInvalidCredentials)
	})

	t.Run("no password set", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		storage.On("GetPasswordHash", mock.Anything, int64(42)).Return("", nil)

		assert.ErrorIs(t, svc.VerifyPassword(context.Background(), 42, "anything"), ErrNoPasswordSet)
	})

	t.Run("does not mutate anything", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		storage.On("GetPasswordHash", mock.Anything, int64(42)).Return(testHash(t, "s3cret"), nil)

		_ = svc.VerifyPassword(context.Background(), 42, "s3cret")
		storage.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_StorageFailuresSurface(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")

	t.Run("register", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		storage.On("UserExists", mock.Anything, "alice", "alice@example.com").Return(false, storeErr)

		_, _, err := svc.Register(context.Background(), "alice", "alice@example.com", "pw")
		assert.ErrorIs(t, err, storeErr)
	})

	// A store outage during login is a server error, not bad credentials.
	t.Run("login user lookup", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		storage.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(nil, storeErr)

		_, err := svc.Login(context.Background(), "alice@example.com", "pw")
		assert.ErrorIs(t, err, storeErr)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("login hash lookup", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := NewService(storage, newTestSessions(t))

		storage.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(&User{ID: 42, Email: "alice@example.com"}, nil)
		storage.On("GetPasswordHash", mock.Anything, int64(42)).Return("", storeErr)

		_, err := svc.Login(context.Background(), "alice@example.com", "pw")
		assert.ErrorIs(t, err, storeErr)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}
