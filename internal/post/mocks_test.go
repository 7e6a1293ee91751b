package post_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/devblog-app/devblog/internal/post"
)

// MockStorage is a testify mock for post.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetPost(ctx context.Context, id int64) (*post.Post, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*post.Post); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) ListPublished(ctx context.Context) ([]post.Post, error) {
	args := m.Called(ctx)
	if posts, ok := args.Get(0).([]post.Post); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) SearchPublished(ctx context.Context, query, tag string) ([]post.Post, error) {
	args := m.Called(ctx, query, tag)
	if posts, ok := args.Get(0).([]post.Post); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) ListPublishedByTag(ctx context.Context, tag string) ([]post.Post, error) {
	args := m.Called(ctx, tag)
	if posts, ok := args.Get(0).([]post.Post); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) ListDraftsByAuthor(ctx context.Context, authorID int64) ([]post.Post, error) {
	args := m.Called(ctx, authorID)
	if posts, ok := args.Get(0).([]post.Post); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) ListPublishedByAuthor(ctx context.Context, authorID int64) ([]post.Post, error) {
	args := m.Called(ctx, authorID)
	if posts, ok := args.Get(0).([]post.Post); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) CreatePost(ctx context.Context, p *post.Post) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = 1
	}
	return args.Error(0)
}

func (m *MockStorage) UpdatePost(ctx context.Context, id, authorID int64, params post.UpdatePostParams) (*post.Post, error) {
	args := m.Called(ctx, id, authorID, params)
	if p, ok := args.Get(0).(*post.Post); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) PublishPost(ctx context.Context, id, authorID int64) (*post.Post, error) {
	args := m.Called(ctx, id, authorID)
	if p, ok := args.Get(0).(*post.Post); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
