package domain

import (
	"context"
	"time"
)

// Post represents a blog post
// The body is stored as Markdown; HTML and Snippet are derived from it when the post is written.
type Post struct {
	ID        string
	Title     string
	Body      string
	HTML      string
	Snippet   string
	UpdatedAt time.Time
	CreatedAt time.Time
}

// Summary projects a post onto the fields shown in a listing.
func (p *Post) Summary() PostSummary {
	return PostSummary{
		ID:        p.ID,
		Title:     p.Title,
		Snippet:   p.Snippet,
		UpdatedAt: p.UpdatedAt,
	}
}

// PostSummary is the reduced view of a Post returned by listings
type PostSummary struct {
	ID        string
	Title     string
	Snippet   string
	UpdatedAt time.Time
}

// PostUpdate carries the client-writable fields of a post.
// HTML and Snippet are rendered by the resource before the update reaches a store.
type PostUpdate struct {
	Title   string
	Body    string
	HTML    string
	Snippet string
}

// Page is a zero-based page index into the post listing.
type Page uint

// PostStore is the persistence seam behind the post resource.
// Implementations own page size and ordering.
type PostStore interface {
	List(ctx context.Context, page Page) ([]PostSummary, error)

	// Find returns false when no post has the given id.
	Find(ctx context.Context, id string) (*Post, bool, error)

	// Upsert creates the post if it is missing and replaces its content otherwise.
	// CreatedAt survives replacement.
	Upsert(ctx context.Context, id string, update PostUpdate) (*Post, error)

	// Remove returns false when there was nothing to remove.
	Remove(ctx context.Context, id string) (bool, error)
}

// SuccessResponse acknowledges a write without returning post data.
type SuccessResponse struct {
	Success bool
}

// PostResource is the capability set served at /posts.
type PostResource interface {
	ListPosts(ctx context.Context, page Page) ([]PostSummary, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	CreateOrUpdatePost(ctx context.Context, id string, update PostUpdate) (SuccessResponse, error)
	DeletePost(ctx context.Context, id string) (SuccessResponse, error)
}
