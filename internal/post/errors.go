package post

import "errors"

var (
	// ErrPostNotFound also covers drafts the requester is not allowed to
	// see; hiding a draft's existence is deliberate, a 403 would confirm it.
	ErrPostNotFound     = errors.New("post not found")
	ErrEmptyQuery       = errors.New("search query is required")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)
