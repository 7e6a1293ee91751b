// Package post manages blog posts: the public feed, search, tag listings,
// authoring, and the draft visibility rule.
package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/devblog-app/devblog/pkg/logger"
)

// Storage defines the post persistence operations. Implementations map
// store-level errors to the sentinels in errors.go. Author-scoped mutations
// (UpdatePost, PublishPost) return ErrPostNotFound when the post does not
// exist or belongs to someone else; the two cases are indistinguishable on
// purpose.
type Storage interface {
	GetPost(ctx context.Context, id int64) (*Post, error)
	ListPublished(ctx context.Context) ([]Post, error)
	SearchPublished(ctx context.Context, query, tag string) ([]Post, error)
	ListPublishedByTag(ctx context.Context, tag string) ([]Post, error)
	ListDraftsByAuthor(ctx context.Context, authorID int64) ([]Post, error)
	ListPublishedByAuthor(ctx context.Context, authorID int64) ([]Post, error)
	CreatePost(ctx context.Context, p *Post) error
	UpdatePost(ctx context.Context, id, authorID int64, params UpdatePostParams) (*Post, error)
	PublishPost(ctx context.Context, id, authorID int64) (*Post, error)
}

// Service implements post operations over a Storage.
type Service struct {
	storage Storage
	log     *slog.Logger
}

type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// NewService creates the post service.
func NewService(storage Storage, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the post by id, applying the draft visibility rule: a
// published post is visible to anyone, a draft only to its author. For
// anyone else the draft does not exist — viewer is nil when the request
// carried no valid session.
func (s *Service) Get(ctx context.Context, id int64, viewer *int64) (*Post, error) {
	p, err := s.storage.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	if p.Draft {
		if viewer == nil || *viewer != p.AuthorID {
			return nil, ErrPostNotFound
		}
	}

	return p, nil
}

// Feed returns all published posts, newest first.
func (s *Service) Feed(ctx context.Context) ([]Post, error) {
	posts, err := s.storage.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// Search matches published posts whose title or content contains the query,
// optionally narrowed to a tag.
func (s *Service) Search(ctx context.Context, query, tag string) ([]Post, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	posts, err := s.storage.SearchPublished(ctx, query, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	return posts, nil
}

// ByTag returns published posts carrying the given tag.
func (s *Service) ByTag(ctx context.Context, tag string) ([]Post, error) {
	posts, err := s.storage.ListPublishedByTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by tag: %w", err)
	}
	return posts, nil
}

// Drafts returns the author's unpublished posts.
func (s *Service) Drafts(ctx context.Context, authorID int64) ([]Post, error) {
	posts, err := s.storage.ListDraftsByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return posts, nil
}

// Published returns the author's published posts, for the profile view.
func (s *Service) Published(ctx context.Context, authorID int64) ([]Post, error) {
	posts, err := s.storage.ListPublishedByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list published posts: %w", err)
	}
	return posts, nil
}

// Create persists a new post for the author. Tags are normalized before
// storage.
func (s *Service) Create(ctx context.Context, authorID int64, title, content string, tags []string, draft bool) (*Post, error) {
	p := &Post{
		AuthorID: authorID,
		Title:    title,
		Content:  content,
		Tags:     NormalizeTags(tags),
		Draft:    draft,
	}
	if err := s.storage.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.log.InfoContext(ctx, "post created",
		slog.Int64("post_id", p.ID),
		logger.UserID(authorID),
		logger.Component("post"),
	)
	return p, nil
}

// Update applies a partial update to the author's own post.
func (s *Service) Update(ctx context.Context, id, authorID int64, params UpdatePostParams) (*Post, error) {
	if params.Title == nil && params.Content == nil && params.Draft == nil && params.Tags == nil {
		return nil, ErrNoFieldsToUpdate
	}

	if params.Tags != nil {
		normalized := NormalizeTags(*params.Tags)
		params.Tags = &normalized
	}

	p, err := s.storage.UpdatePost(ctx, id, authorID, params)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return p, nil
}

// Publish flips the author's draft to published.
func (s *Service) Publish(ctx context.Context, id, authorID int64) (*Post, error) {
	p, err := s.storage.PublishPost(ctx, id, authorID)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to publish post: %w", err)
	}

	s.log.InfoContext(ctx, "post published",
		slog.Int64("post_id", id),
		logger.UserID(authorID),
		logger.Component("post"),
	)
	return p, nil
}
