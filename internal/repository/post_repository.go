package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/driftline/label-platform/internal/model"
)

// PostRepo persists news/blog posts.
type PostRepo struct{ DB *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{DB: db} }

const postColumns = "id, author_id, title, body, required_tier, published_at, created_at, updated_at"

// Create inserts a post and fills in its id.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO posts (author_id, title, body, required_tier, published_at) VALUES (?,?,?,?,?)",
		p.AuthorID, p.Title, p.Body, p.RequiredTier, p.PublishedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Update rewrites a post. authorID 0 skips the ownership filter (admin).
func (r *PostRepo) Update(ctx context.Context, p *model.Post, authorID uint64) error {
	q := "UPDATE posts SET title=?, body=?, required_tier=? WHERE id=?"
	args := []any{p.Title, p.Body, p.RequiredTier, p.ID}
	if authorID != 0 {
		q += " AND author_id=?"
		args = append(args, authorID)
	}
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// Delete removes a post with the same ownership rule as Update.
func (r *PostRepo) Delete(ctx context.Context, id, authorID uint64) error {
	q := "DELETE FROM posts WHERE id=?"
	args := []any{id}
	if authorID != 0 {
		q += " AND author_id=?"
		args = append(args, authorID)
	}
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// GetByID fetches one post.
func (r *PostRepo) GetByID(ctx context.Context, id uint64) (model.Post, error) {
	var p model.Post
	var tier sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id=? LIMIT 1", id).
		Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &tier, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, ErrNotFound
		}
		return model.Post{}, err
	}
	if tier.Valid {
		p.RequiredTier = &tier.String
	}
	return p, nil
}

// List returns published posts newest-first.
func (r *PostRepo) List(ctx context.Context) ([]model.Post, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+postColumns+" FROM posts ORDER BY published_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		var p model.Post
		var tier sql.NullString
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &tier,
			&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if tier.Valid {
			p.RequiredTier = &tier.String
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
