package auth

import "time"

// User is a public identity record. The password hash and the GitHub access
// token are never carried on this struct; they stay behind the storage
// interfaces so no response can leak them.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	GithubID  string    `json:"github_id,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ResetToken is a persisted single-use password reset credential.
// used is monotonic: it flips false to true exactly once and never reverts.
type ResetToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// GithubIdentity is a verified identity assertion from GitHub, normalized by
// the OAuth adapter before any storage interaction.
type GithubIdentity struct {
	GithubID    string
	Username    string
	AvatarURL   string
	AccessToken string
}

// UpdateUserParams carries a partial profile update; nil fields are left
// untouched by the store.
type UpdateUserParams struct {
	Username     *string
	Email        *string
	PasswordHash *string
}
