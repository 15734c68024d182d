package model

import "time"

// Post mirrors the `posts` table. Locked posts (RequiredTier set, viewer
// below it) are listed as teasers with the body withheld.
type Post struct {
	ID           uint64    // posts.id
	AuthorID     uint64    // posts.author_id
	Title        string    // posts.title
	Body         string    // posts.body
	RequiredTier *string   // posts.required_tier (nullable)
	PublishedAt  time.Time // posts.published_at
	CreatedAt    time.Time // posts.created_at
	UpdatedAt    time.Time // posts.updated_at
}
