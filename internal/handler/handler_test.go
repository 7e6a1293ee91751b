package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devblog-app/devblog/internal/auth"
	"github.com/devblog-app/devblog/internal/handler"
	"github.com/devblog-app/devblog/internal/post"
	"github.com/devblog-app/devblog/pkg/jwt"
)

const testSecret = "test-secret-key-at-least-32-bytes!!"

// memStore is an in-memory stand-in for the PostgreSQL repository,
// implementing the storage interfaces of the auth and post packages.
type memStore struct {
	mu     sync.Mutex
	nextID int64

	users  map[int64]*auth.User
	hashes map[int64]string
	tokens map[string]*auth.ResetToken
	posts  map[int64]*post.Post
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[int64]*auth.User{},
		hashes: map[int64]string{},
		tokens: map[string]*auth.ResetToken{},
		posts:  map[int64]*post.Post{},
	}
}

func (s *memStore) UserExists(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) OtherUserExists(_ context.Context, username, email string, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == excludeID {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateUser(_ context.Context, user *auth.User, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	copied := *user
	s.users[user.ID] = &copied
	s.hashes[user.ID] = passwordHash
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (s *memStore) GetPasswordHash(_ context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return "", auth.ErrUserNotFound
	}
	return s.hashes[userID], nil
}

func (s *memStore) UpdateUser(_ context.Context, userID int64, params auth.UpdateUserParams) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	if params.Username != nil {
		u.Username = *params.Username
	}
	if params.Email != nil {
		u.Email = *params.Email
	}
	if params.PasswordHash != nil {
		s.hashes[userID] = *params.PasswordHash
	}
	copied := *u
	return &copied, nil
}

func (s *memStore) CreateResetToken(_ context.Context, t *auth.ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	t.CreatedAt = time.Now()
	copied := *t
	s.tokens[t.Token] = &copied
	return nil
}

func (s *memStore) GetResetToken(_ context.Context, tok string) (*auth.ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tok]
	if !ok {
		return nil, auth.ErrResetTokenNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *memStore) ConsumeResetToken(_ context.Context, tok, passwordHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tok]
	if !ok {
		return auth.ErrResetTokenNotFound
	}
	if t.Used {
		return auth.ErrResetTokenUsed
	}
	if !now.Before(t.ExpiresAt) {
		return auth.ErrResetTokenExpired
	}
	t.Used = true
	s.hashes[t.UserID] = passwordHash
	return nil
}

func (s *memStore) GetPost(_ context.Context, id int64) (*post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, post.ErrPostNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *memStore) list(match func(*post.Post) bool) []post.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []post.Post{}
	for _, p := range s.posts {
		if match(p) {
			out = append(out, *p)
		}
	}
	return out
}

func (s *memStore) ListPublished(_ context.Context) ([]post.Post, error) {
	return s.list(func(p *post.Post) bool { return !p.Draft }), nil
}

func (s *memStore) SearchPublished(_ context.Context, query, tag string) ([]post.Post, error) {
	return s.list(func(p *post.Post) bool {
		if p.Draft {
			return false
		}
		if tag != "" && !hasTag(p, tag) {
			return false
		}
		return strings.Contains(p.Title+" "+p.Content, query)
	}), nil
}

func hasTag(p *post.Post, tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (s *memStore) ListPublishedByTag(_ context.Context, tag string) ([]post.Post, error) {
	return s.list(func(p *post.Post) bool { return !p.Draft && hasTag(p, tag) }), nil
}

func (s *memStore) ListDraftsByAuthor(_ context.Context, authorID int64) ([]post.Post, error) {
	return s.list(func(p *post.Post) bool { return p.Draft && p.AuthorID == authorID }), nil
}

func (s *memStore) ListPublishedByAuthor(_ context.Context, authorID int64) ([]post.Post, error) {
	return s.list(func(p *post.Post) bool { return !p.Draft && p.AuthorID == authorID }), nil
}

func (s *memStore) CreatePost(_ context.Context, p *post.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	copied := *p
	s.posts[p.ID] = &copied
	return nil
}

func (s *memStore) UpdatePost(_ context.Context, id, authorID int64, params post.UpdatePostParams) (*post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok || p.AuthorID != authorID {
		return nil, post.ErrPostNotFound
	}
	if params.Title != nil {
		p.Title = *params.Title
	}
	if params.Content != nil {
		p.Content = *params.Content
	}
	if params.Draft != nil {
		p.Draft = *params.Draft
	}
	if params.Tags != nil {
		p.Tags = *params.Tags
	}
	p.UpdatedAt = time.Now()
	copied := *p
	return &copied, nil
}

func (s *memStore) PublishPost(_ context.Context, id, authorID int64) (*post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok || p.AuthorID != authorID {
		return nil, post.ErrPostNotFound
	}
	p.Draft = false
	p.UpdatedAt = time.Now()
	copied := *p
	return &copied, nil
}

type noopMailer struct{}

func (noopMailer) SendPasswordReset(context.Context, string, string, string) error { return nil }

// testAPI wires the full router over the in-memory store, the way main does
// over PostgreSQL.
func testAPI(t *testing.T) (http.Handler, *memStore) {
	t.Helper()

	store := newMemStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessions, err := jwt.New(testSecret)
	require.NoError(t, err)

	authSvc := auth.NewService(store, sessions, auth.WithBcryptCost(4))
	resetSvc := auth.NewResetService(store, noopMailer{}, auth.WithResetBcryptCost(4))
	postSvc := post.NewService(store)

	authHandler := handler.NewAuthHandler(authSvc, nil, resetSvc, postSvc, sessions, log)
	postHandler := handler.NewPostHandler(postSvc, sessions, log)

	return handler.Router(handler.Config{AllowedOrigins: []string{"http://localhost:3000"}},
		log, authHandler, postHandler), store
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
