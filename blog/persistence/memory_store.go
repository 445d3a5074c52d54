package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dfryer1193/blogapi/blog/domain"
)

var _ domain.PostStore = (*MemoryPostStore)(nil)

// MemoryPostStore keeps posts in a map. Contents are lost on restart.
type MemoryPostStore struct {
	mu       sync.RWMutex
	posts    map[string]domain.Post
	pageSize int
	now      func() time.Time
}

func NewMemoryPostStore(pageSize int) *MemoryPostStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &MemoryPostStore{
		posts:    make(map[string]domain.Post),
		pageSize: pageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List orders posts the same way as the SQLite store: updated_at DESC, id ASC
func (s *MemoryPostStore) List(ctx context.Context, page domain.Page) ([]domain.PostSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	offset, ok := pageOffset(page, s.pageSize)
	if !ok {
		return []domain.PostSummary{}, nil
	}

	s.mu.RLock()
	summaries := make([]domain.PostSummary, 0, len(s.posts))
	for _, p := range s.posts {
		summaries = append(summaries, p.Summary())
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})

	if offset >= int64(len(summaries)) {
		return []domain.PostSummary{}, nil
	}
	start := int(offset)
	end := min(start+s.pageSize, len(summaries))

	return summaries[start:end], nil
}

func (s *MemoryPostStore) Find(ctx context.Context, id string) (*domain.Post, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (s *MemoryPostStore) Upsert(ctx context.Context, id string, update domain.PostUpdate) (*domain.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// checked under the lock so a cancelled caller never writes
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	p, ok := s.posts[id]
	if !ok {
		p = domain.Post{ID: id, CreatedAt: now}
	}
	p.Title = update.Title
	p.Body = update.Body
	p.HTML = update.HTML
	p.Snippet = update.Snippet
	p.UpdatedAt = now

	s.posts[id] = p
	return &p, nil
}

func (s *MemoryPostStore) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	if _, ok := s.posts[id]; !ok {
		return false, nil
	}
	delete(s.posts, id)
	return true, nil
}
