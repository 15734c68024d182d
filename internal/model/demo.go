package model

import "time"

// Demo submission review states.
const (
	DemoStatusPending  = "PENDING"
	DemoStatusAccepted = "ACCEPTED"
	DemoStatusRejected = "REJECTED"
)

// DemoSubmission mirrors the `demo_submissions` table. Reference is a
// UUID handed to the submitter so they can quote it without exposing row
// ids. Status moves PENDING -> ACCEPTED | REJECTED by admin/artist review.
type DemoSubmission struct {
	ID         uint64    // demo_submissions.id
	Reference  string    // demo_submissions.reference (uuid, unique)
	UserID     uint64    // demo_submissions.user_id
	ArtistName string    // demo_submissions.artist_name
	TrackURL   string    // demo_submissions.track_url
	Message    string    // demo_submissions.message
	Status     string    // demo_submissions.status
	CreatedAt  time.Time // demo_submissions.created_at
	UpdatedAt  time.Time // demo_submissions.updated_at
}
