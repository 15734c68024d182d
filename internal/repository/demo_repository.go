package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/driftline/label-platform/internal/model"
)

// DemoRepo persists demo submissions.
type DemoRepo struct{ DB *sql.DB }

func NewDemoRepo(db *sql.DB) *DemoRepo { return &DemoRepo{DB: db} }

const demoColumns = "id, reference, user_id, artist_name, track_url, message, status, created_at, updated_at"

// Create inserts a submission in PENDING state and fills in its id.
func (r *DemoRepo) Create(ctx context.Context, d *model.DemoSubmission) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO demo_submissions (reference, user_id, artist_name, track_url, message, status) VALUES (?,?,?,?,?,?)",
		d.Reference, d.UserID, d.ArtistName, d.TrackURL, d.Message, model.DemoStatusPending)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	d.Status = model.DemoStatusPending
	return nil
}

// GetByReference fetches one submission by its public reference code.
func (r *DemoRepo) GetByReference(ctx context.Context, ref string) (model.DemoSubmission, error) {
	var d model.DemoSubmission
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+demoColumns+" FROM demo_submissions WHERE reference=? LIMIT 1", ref).
		Scan(&d.ID, &d.Reference, &d.UserID, &d.ArtistName, &d.TrackURL, &d.Message,
			&d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DemoSubmission{}, ErrNotFound
		}
		return model.DemoSubmission{}, err
	}
	return d, nil
}

// ListByUser returns a submitter's own demos newest-first.
func (r *DemoRepo) ListByUser(ctx context.Context, userID uint64) ([]model.DemoSubmission, error) {
	return r.list(ctx,
		"SELECT "+demoColumns+" FROM demo_submissions WHERE user_id=? ORDER BY id DESC", userID)
}

// ListAll returns every submission for the review queue, optionally
// filtered by status ("" = all).
func (r *DemoRepo) ListAll(ctx context.Context, status string) ([]model.DemoSubmission, error) {
	if status == "" {
		return r.list(ctx, "SELECT "+demoColumns+" FROM demo_submissions ORDER BY id DESC")
	}
	return r.list(ctx,
		"SELECT "+demoColumns+" FROM demo_submissions WHERE status=? ORDER BY id DESC", status)
}

// SetStatus moves a submission to a new review state.
func (r *DemoRepo) SetStatus(ctx context.Context, ref, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE demo_submissions SET status=? WHERE reference=?", status, ref)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *DemoRepo) list(ctx context.Context, q string, args ...any) ([]model.DemoSubmission, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DemoSubmission
	for rows.Next() {
		var d model.DemoSubmission
		if err := rows.Scan(&d.ID, &d.Reference, &d.UserID, &d.ArtistName, &d.TrackURL,
			&d.Message, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
