package model

import "time"

// Release mirrors the `releases` table. RequiredTier is NULL for public
// releases; a non-null value gates the stream URL behind that
// subscription tier (early access / subscriber exclusives).
type Release struct {
	ID           uint64     // releases.id
	ArtistID     uint64     // releases.artist_id (owning user)
	Title        string     // releases.title
	ArtistName   string     // releases.artist_name (display credit)
	Slug         string     // releases.slug (unique)
	Kind         string     // releases.kind: ALBUM | EP | SINGLE
	ReleaseDate  time.Time  // releases.release_date
	CoverURL     string     // releases.cover_url
	StreamURL    string     // releases.stream_url (withheld when locked)
	RequiredTier *string    // releases.required_tier (nullable)
	CreatedAt    time.Time  // releases.created_at
	UpdatedAt    time.Time  // releases.updated_at
}
