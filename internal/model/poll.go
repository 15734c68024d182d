package model

import "time"

// Poll mirrors the `polls` table. Voting may be tier-gated via
// RequiredTier and closes at ClosesAt (NULL = open indefinitely).
type Poll struct {
	ID           uint64     // polls.id
	Question     string     // polls.question
	RequiredTier *string    // polls.required_tier (nullable)
	ClosesAt     *time.Time // polls.closes_at (nullable)
	CreatedAt    time.Time  // polls.created_at
	Options      []PollOption
}

// PollOption mirrors the `poll_options` table. Votes is a derived count,
// populated by the repository from poll_votes.
type PollOption struct {
	ID     uint64 // poll_options.id
	PollID uint64 // poll_options.poll_id
	Label  string // poll_options.label
	Votes  int64  // count(poll_votes)
}

// PollVote mirrors the `poll_votes` table; (poll_id, user_id) is unique
// so each account votes once per poll.
type PollVote struct {
	ID       uint64    // poll_votes.id
	PollID   uint64    // poll_votes.poll_id
	OptionID uint64    // poll_votes.option_id
	UserID   uint64    // poll_votes.user_id
	VotedAt  time.Time // poll_votes.voted_at
}
