package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/driftline/label-platform/internal/model"
)

// PollRepo persists polls, their options and per-user votes.
type PollRepo struct{ DB *sql.DB }

func NewPollRepo(db *sql.DB) *PollRepo { return &PollRepo{DB: db} }

// Create inserts a poll and its options in one transaction.
func (r *PollRepo) Create(ctx context.Context, p *model.Poll) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO polls (question, required_tier, closes_at) VALUES (?,?,?)",
		p.Question, p.RequiredTier, p.ClosesAt)
	if err != nil {
		return err
	}
	pollID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(pollID)

	for i := range p.Options {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO poll_options (poll_id, label) VALUES (?,?)",
			p.ID, p.Options[i].Label)
		if err != nil {
			return err
		}
		optID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p.Options[i].ID = uint64(optID)
		p.Options[i].PollID = p.ID
	}
	return tx.Commit()
}

// GetByID loads a poll with its options and vote counts.
func (r *PollRepo) GetByID(ctx context.Context, id uint64) (model.Poll, error) {
	var p model.Poll
	var tier sql.NullString
	var closes sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, question, required_tier, closes_at, created_at FROM polls WHERE id=? LIMIT 1", id).
		Scan(&p.ID, &p.Question, &tier, &closes, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Poll{}, ErrNotFound
		}
		return model.Poll{}, err
	}
	if tier.Valid {
		p.RequiredTier = &tier.String
	}
	if closes.Valid {
		t := closes.Time
		p.ClosesAt = &t
	}
	if p.Options, err = r.optionsWithCounts(ctx, p.ID); err != nil {
		return model.Poll{}, err
	}
	return p, nil
}

// List returns all polls newest-first, options and counts included.
func (r *PollRepo) List(ctx context.Context) ([]model.Poll, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, question, required_tier, closes_at, created_at FROM polls ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Poll
	for rows.Next() {
		var p model.Poll
		var tier sql.NullString
		var closes sql.NullTime
		if err := rows.Scan(&p.ID, &p.Question, &tier, &closes, &p.CreatedAt); err != nil {
			return nil, err
		}
		if tier.Valid {
			p.RequiredTier = &tier.String
		}
		if closes.Valid {
			t := closes.Time
			p.ClosesAt = &t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Options, err = r.optionsWithCounts(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Vote records one vote. The (poll_id, user_id) unique key enforces the
// one-vote-per-account rule; a second vote comes back as ErrDuplicate.
// Voting on an option that does not belong to the poll is ErrNotFound.
func (r *PollRepo) Vote(ctx context.Context, pollID, optionID, userID uint64) error {
	var ok int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM poll_options WHERE id=? AND poll_id=? LIMIT 1", optionID, pollID).Scan(&ok)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO poll_votes (poll_id, option_id, user_id) VALUES (?,?,?)",
		pollID, optionID, userID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("record vote: %w", err)
	}
	return nil
}

// Delete removes a poll; options and votes cascade.
func (r *PollRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM polls WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *PollRepo) optionsWithCounts(ctx context.Context, pollID uint64) ([]model.PollOption, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT o.id, o.poll_id, o.label, COUNT(v.id)
		 FROM poll_options o
		 LEFT JOIN poll_votes v ON v.option_id = o.id
		 WHERE o.poll_id = ?
		 GROUP BY o.id, o.poll_id, o.label
		 ORDER BY o.id`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []model.PollOption
	for rows.Next() {
		var o model.PollOption
		if err := rows.Scan(&o.ID, &o.PollID, &o.Label, &o.Votes); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// IsClosedAt reports whether the poll no longer accepts votes at the
// given instant.
func IsClosedAt(p model.Poll, now time.Time) bool {
	return p.ClosesAt != nil && p.ClosesAt.Before(now)
}
