// Package storage persists users, password reset tokens, and posts in
// PostgreSQL. The Repository satisfies the consumer-side interfaces declared
// by the auth and post packages, translating database errors into their
// domain sentinels.
package storage

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the PostgreSQL-backed store shared by all services.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a Repository over an established connection pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}
