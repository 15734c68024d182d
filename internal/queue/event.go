// Package queue defines message payloads exchanged over the message
// broker and the background consumer that drains them.
package queue

// DemoSubmittedEvent is published when a demo lands in the inbox. It
// carries enough for downstream consumers (review-queue log, A&R
// notifications) without a round trip to the primary database.
type DemoSubmittedEvent struct {
	Reference   string `json:"reference"`
	UserID      uint64 `json:"user_id"`
	ArtistName  string `json:"artist_name"`
	TrackURL    string `json:"track_url"`
	SubmittedAt string `json:"submitted_at"`
}

// DemoQueueName is the durable queue both publisher and consumer declare.
const DemoQueueName = "demo.submitted"
