package post

import (
	"encoding/json"
	"strings"
	"time"
)

// Post is a blog entry. AuthorUsername and AuthorAvatarURL are denormalized
// from the author record for list and detail views.
type Post struct {
	ID              int64     `json:"id"`
	AuthorID        int64     `json:"author_id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Tags            []string  `json:"tags"`
	Draft           bool      `json:"draft"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	AuthorUsername  string    `json:"username,omitempty"`
	AuthorAvatarURL string    `json:"avatar_url,omitempty"`
}

// TagList accepts either a JSON array of strings or a single
// comma-separated string, which is how existing clients submit tags.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*t = arr
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*t = nil
		return nil
	}
	*t = strings.Split(s, ",")
	return nil
}

// NormalizeTags lowercases, trims, and deduplicates tags, preserving first
// occurrence order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// UpdatePostParams carries a partial post update; nil fields are left
// untouched by the store.
type UpdatePostParams struct {
	Title   *string
	Content *string
	Draft   *bool
	Tags    *[]string
}
