package persistence

import (
	"context"

	"github.com/dfryer1193/blogapi/blog/domain"
)

var _ domain.PostStore = NopPostStore{}

// NopPostStore stands in for a missing backend: it holds no posts and accepts no writes.
type NopPostStore struct{}

func (NopPostStore) List(context.Context, domain.Page) ([]domain.PostSummary, error) {
	return []domain.PostSummary{}, nil
}

func (NopPostStore) Find(context.Context, string) (*domain.Post, bool, error) {
	return nil, false, nil
}

func (NopPostStore) Upsert(context.Context, string, domain.PostUpdate) (*domain.Post, error) {
	return nil, domain.ErrForbidden
}

func (NopPostStore) Remove(context.Context, string) (bool, error) {
	return false, nil
}
