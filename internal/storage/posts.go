package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/devblog-app/devblog/internal/post"
	"github.com/devblog-app/devblog/pkg/pg"
)

const postColumns = `p.id, p.author_id, p.title, p.content, p.tags, p.draft, p.created_at, p.updated_at,
	u.username, COALESCE(u.avatar_url, '')`

const postFrom = ` FROM posts p JOIN users u ON u.id = p.author_id `

func scanPost(row pgx.Row) (*post.Post, error) {
	var p post.Post
	err := row.Scan(
		&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.Tags, &p.Draft,
		&p.CreatedAt, &p.UpdatedAt, &p.AuthorUsername, &p.AuthorAvatarURL,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) listPosts(ctx context.Context, query string, args ...any) ([]post.Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []post.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}

// GetPost returns the post with its author's public profile fields, draft or
// not. Visibility is the caller's concern.
func (r *Repository) GetPost(ctx context.Context, id int64) (*post.Post, error) {
	query := `SELECT ` + postColumns + postFrom + `WHERE p.id = $1`
	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, post.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

func (r *Repository) ListPublished(ctx context.Context) ([]post.Post, error) {
	query := `SELECT ` + postColumns + postFrom + `WHERE NOT p.draft ORDER BY p.created_at DESC`
	return r.listPosts(ctx, query)
}

// SearchPublished matches the query against title and content,
// case-insensitively, optionally narrowed to a tag. An empty tag matches
// everything.
func (r *Repository) SearchPublished(ctx context.Context, query, tag string) ([]post.Post, error) {
	q := `
		SELECT ` + postColumns + postFrom + `
		WHERE NOT p.draft
		  AND (p.title ILIKE '%' || $1 || '%' OR p.content ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR $2 = ANY(p.tags))
		ORDER BY p.created_at DESC
	`
	return r.listPosts(ctx, q, query, tag)
}

func (r *Repository) ListPublishedByTag(ctx context.Context, tag string) ([]post.Post, error) {
	query := `
		SELECT ` + postColumns + postFrom + `
		WHERE NOT p.draft AND $1 = ANY(p.tags)
		ORDER BY p.created_at DESC
	`
	return r.listPosts(ctx, query, tag)
}

func (r *Repository) ListDraftsByAuthor(ctx context.Context, authorID int64) ([]post.Post, error) {
	query := `
		SELECT ` + postColumns + postFrom + `
		WHERE p.draft AND p.author_id = $1
		ORDER BY p.created_at DESC
	`
	return r.listPosts(ctx, query, authorID)
}

func (r *Repository) ListPublishedByAuthor(ctx context.Context, authorID int64) ([]post.Post, error) {
	query := `
		SELECT ` + postColumns + postFrom + `
		WHERE NOT p.draft AND p.author_id = $1
		ORDER BY p.created_at DESC
	`
	return r.listPosts(ctx, query, authorID)
}

// CreatePost inserts the post and fills in the generated id and timestamps.
func (r *Repository) CreatePost(ctx context.Context, p *post.Post) error {
	query := `
		INSERT INTO posts (author_id, title, content, tags, draft)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, p.AuthorID, p.Title, p.Content, p.Tags, p.Draft).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// UpdatePost applies the non-nil fields to the author's own post. A missing
// row and a row owned by someone else are both ErrPostNotFound.
func (r *Repository) UpdatePost(ctx context.Context, id, authorID int64, params post.UpdatePostParams) (*post.Post, error) {
	var tags any
	if params.Tags != nil {
		tags = *params.Tags
	}

	query := `
		UPDATE posts p
		SET title = COALESCE($3, p.title),
		    content = COALESCE($4, p.content),
		    draft = COALESCE($5, p.draft),
		    tags = COALESCE($6::text[], p.tags),
		    updated_at = now()
		FROM users u
		WHERE p.id = $1 AND p.author_id = $2 AND u.id = p.author_id
		RETURNING ` + postColumns
	p, err := scanPost(r.pool.QueryRow(ctx, query, id, authorID,
		params.Title, params.Content, params.Draft, tags))
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, post.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return p, nil
}

// PublishPost flips the author's draft to published.
func (r *Repository) PublishPost(ctx context.Context, id, authorID int64) (*post.Post, error) {
	query := `
		UPDATE posts p
		SET draft = false, updated_at = now()
		FROM users u
		WHERE p.id = $1 AND p.author_id = $2 AND u.id = p.author_id
		RETURNING ` + postColumns
	p, err := scanPost(r.pool.QueryRow(ctx, query, id, authorID))
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, post.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to publish post: %w", err)
	}
	return p, nil
}
