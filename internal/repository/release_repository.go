package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/driftline/label-platform/internal/model"
)

// ReleaseRepo persists catalogue entries in the `releases` table.
type ReleaseRepo struct{ DB *sql.DB }

func NewReleaseRepo(db *sql.DB) *ReleaseRepo { return &ReleaseRepo{DB: db} }

const releaseColumns = "id, artist_id, title, artist_name, slug, kind, release_date, cover_url, stream_url, required_tier, created_at, updated_at"

// Create inserts a release and fills in its id.
func (r *ReleaseRepo) Create(ctx context.Context, rel *model.Release) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO releases (artist_id, title, artist_name, slug, kind, release_date, cover_url, stream_url, required_tier)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		rel.ArtistID, rel.Title, rel.ArtistName, rel.Slug, rel.Kind, rel.ReleaseDate,
		rel.CoverURL, rel.StreamURL, rel.RequiredTier)
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
	rel.ID = uint64(id)
	return nil
}

// Update rewrites the mutable fields of a release owned by artistID.
// Admins pass artistID 0 to skip the ownership filter.
func (r *ReleaseRepo) Update(ctx context.Context, rel *model.Release, artistID uint64) error {
	q := `UPDATE releases SET title=?, artist_name=?, slug=?, kind=?, release_date=?, cover_url=?, stream_url=?, required_tier=? WHERE id=?`
	args := []any{rel.Title, rel.ArtistName, rel.Slug, rel.Kind, rel.ReleaseDate,
		rel.CoverURL, rel.StreamURL, rel.RequiredTier, rel.ID}
	if artistID != 0 {
		q += " AND artist_id=?"
		args = append(args, artistID)
	}
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return requireRowAffected(res)
}

// Delete removes a release, honouring the same ownership rule as Update.
func (r *ReleaseRepo) Delete(ctx context.Context, id, artistID uint64) error {
	q := "DELETE FROM releases WHERE id=?"
	args := []any{id}
	if artistID != 0 {
		q += " AND artist_id=?"
		args = append(args, artistID)
	}
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// GetByID fetches a single release.
func (r *ReleaseRepo) GetByID(ctx context.Context, id uint64) (model.Release, error) {
	return scanRelease(r.DB.QueryRowContext(ctx,
		"SELECT "+releaseColumns+" FROM releases WHERE id=? LIMIT 1", id))
}

// GetBySlug fetches a single release by its public slug.
func (r *ReleaseRepo) GetBySlug(ctx context.Context, slug string) (model.Release, error) {
	return scanRelease(r.DB.QueryRowContext(ctx,
		"SELECT "+releaseColumns+" FROM releases WHERE slug=? LIMIT 1", slug))
}

// List returns the catalogue newest-first.
func (r *ReleaseRepo) List(ctx context.Context) ([]model.Release, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+releaseColumns+" FROM releases ORDER BY release_date DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Release
	for rows.Next() {
		rel, err := scanReleaseRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// ListByArtist returns the releases owned by one artist account.
func (r *ReleaseRepo) ListByArtist(ctx context.Context, artistID uint64) ([]model.Release, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+releaseColumns+" FROM releases WHERE artist_id=? ORDER BY release_date DESC, id DESC", artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Release
	for rows.Next() {
		rel, err := scanReleaseRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

func scanRelease(row *sql.Row) (model.Release, error) {
	var rel model.Release
	var tier sql.NullString
	err := row.Scan(&rel.ID, &rel.ArtistID, &rel.Title, &rel.ArtistName, &rel.Slug, &rel.Kind,
		&rel.ReleaseDate, &rel.CoverURL, &rel.StreamURL, &tier, &rel.CreatedAt, &rel.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Release{}, ErrNotFound
		}
		return model.Release{}, err
	}
	if tier.Valid {
		rel.RequiredTier = &tier.String
	}
	return rel, nil
}

func scanReleaseRows(rows *sql.Rows) (model.Release, error) {
	var rel model.Release
	var tier sql.NullString
	err := rows.Scan(&rel.ID, &rel.ArtistID, &rel.Title, &rel.ArtistName, &rel.Slug, &rel.Kind,
		&rel.ReleaseDate, &rel.CoverURL, &rel.StreamURL, &tier, &rel.CreatedAt, &rel.UpdatedAt)
	if err != nil {
		return model.Release{}, err
	}
	if tier.Valid {
		rel.RequiredTier = &tier.String
	}
	return rel, nil
}
