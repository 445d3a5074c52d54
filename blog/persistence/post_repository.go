package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/blogapi/blog/domain"
	"github.com/dfryer1193/blogapi/shared/db"
)

var _ domain.PostStore = (*SQLitePostRepository)(nil)

// DefaultPageSize is used when a store is built with a non-positive page size
const DefaultPageSize = 10

// SQLitePostRepository implements domain.PostStore using SQL database (SQLite)
type SQLitePostRepository struct {
	db       *sql.DB
	pageSize int
	now      func() time.Time
}

// NewPostRepository creates a new SQLitePostRepository from a standard sql.DB
func NewPostRepository(sqlDB *sql.DB, pageSize int) *SQLitePostRepository {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &SQLitePostRepository{
		db:       sqlDB,
		pageSize: pageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

const listPostsQuery = `
	SELECT id, title, snippet, updated_at
	FROM posts
	ORDER BY updated_at DESC, id ASC
	LIMIT ? OFFSET ?
`

// List returns one page of post summaries, most recently updated first
func (r *SQLitePostRepository) List(ctx context.Context, page domain.Page) ([]domain.PostSummary, error) {
	offset, ok := pageOffset(page, r.pageSize)
	if !ok {
		return []domain.PostSummary{}, nil
	}

	rows, err := r.db.QueryContext(ctx, listPostsQuery, r.pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.PostSummary, 0)
	for rows.Next() {
		var s domain.PostSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Snippet, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return summaries, nil
}

const getPostQuery = `
	SELECT id, title, body, html, snippet, updated_at, created_at
	FROM posts
	WHERE id = ?
`

// Find retrieves a single post by ID
func (r *SQLitePostRepository) Find(ctx context.Context, id string) (*domain.Post, bool, error) {
	if id == "" {
		return nil, false, nil
	}
	return findPost(ctx, db.GetExecutor(ctx, r.db), id)
}

func findPost(ctx context.Context, executor db.Executor, id string) (*domain.Post, bool, error) {
	var row postRow
	err := executor.QueryRowContext(ctx, getPostQuery, id).Scan(
		&row.ID,
		&row.Title,
		&row.Body,
		&row.HTML,
		&row.Snippet,
		&row.UpdatedAt,
		&row.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to get post: %w", err)
	}

	return row.toDomain(), true, nil
}

const upsertPostQuery = `
	INSERT INTO posts (id, title, body, html, snippet, updated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		body = excluded.body,
		html = excluded.html,
		snippet = excluded.snippet,
		updated_at = excluded.updated_at
`

// Upsert writes the post and reads it back in one transaction
func (r *SQLitePostRepository) Upsert(ctx context.Context, id string, update domain.PostUpdate) (*domain.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post ID cannot be empty")
	}

	var post *domain.Post
	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		now := r.now()
		executor := db.GetExecutor(txCtx, r.db)

		_, err := executor.ExecContext(txCtx, upsertPostQuery,
			id,
			update.Title,
			update.Body,
			update.HTML,
			update.Snippet,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert post: %w", err)
		}

		p, found, err := findPost(txCtx, executor, id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("post %s missing after upsert", id)
		}

		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return post, nil
}

const deletePostQuery = `
	DELETE FROM posts WHERE id = ?
`

// Remove deletes a post, reporting whether a row existed
func (r *SQLitePostRepository) Remove(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	var removed bool
	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		res, err := db.GetExecutor(txCtx, r.db).ExecContext(txCtx, deletePostQuery, id)
		if err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read deleted row count: %w", err)
		}

		removed = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	return removed, nil
}

// postRow is a private struct used to scan database rows
type postRow struct {
	ID        string       `db:"id"`
	Title     string       `db:"title"`
	Body      string       `db:"body"`
	HTML      string       `db:"html"`
	Snippet   string       `db:"snippet"`
	UpdatedAt sql.NullTime `db:"updated_at"`
	CreatedAt sql.NullTime `db:"created_at"`
}

func (pr *postRow) toDomain() *domain.Post {
	post := &domain.Post{
		ID:      pr.ID,
		Title:   pr.Title,
		Body:    pr.Body,
		HTML:    pr.HTML,
		Snippet: pr.Snippet,
	}

	if pr.UpdatedAt.Valid {
		post.UpdatedAt = pr.UpdatedAt.Time
	}
	if pr.CreatedAt.Valid {
		post.CreatedAt = pr.CreatedAt.Time
	}

	return post
}
