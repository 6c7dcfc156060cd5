package posts

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/miniblog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// manual statement caching not needed:
// https://github.com/jackc/pgx/wiki/Automatic-Prepared-Statement-Caching

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Insert writes one post row and populates the given post with the
// store-assigned id and created_at. Title and content constraints
// (non-empty, title length) are enforced by the table schema, so
// violations surface as pgconn errors, not as hand-written checks.
func (r *Repo) Insert(ctx context.Context, post *Post) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Insert")
	defer span.End()

	var createdAt *time.Time
	if !post.CreatedAt.IsZero() {
		createdAt = &post.CreatedAt
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO blog_post (title, content, created_at)
			VALUES ($1, $2, COALESCE($3::timestamptz, NOW()))
			RETURNING id, created_at;`,
		post.Title, post.Content, createdAt,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return err
	}

	if !rows.Next() {
		return errors.New("unexpected error, failed to insert post")
	}

	if err := rows.Scan(&post.ID, &post.CreatedAt); err != nil {
		return err
	}

	return nil
}

// ListAll returns every post row. No ORDER BY: callers get the
// store-default order.
func (r *Repo) ListAll(ctx context.Context) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.ListAll")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, title, content, created_at FROM blog_post;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2posts(rows)
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Count")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT COUNT(*) FROM blog_post;`)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get posts count")
}

func (r *Repo) rows2posts(rows pgx.Rows) ([]*Post, error) {
	var allPosts []*Post
	for rows.Next() {
		var id int
		var title string
		var content string
		var createdAt time.Time
		if err := rows.Scan(&id, &title, &content, &createdAt); err != nil {
			return nil, err
		}
		allPosts = append(allPosts, &Post{
			ID:        id,
			Title:     title,
			Content:   content,
			CreatedAt: createdAt,
		})
	}
	return allPosts, nil
}
