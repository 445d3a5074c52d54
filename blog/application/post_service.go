package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/dfryer1193/blogapi/blog/domain"
	"github.com/rs/zerolog/log"
)

var _ domain.PostResource = (*PostService)(nil)

// PostEventPublisher is notified after a post write has been committed.
type PostEventPublisher interface {
	PostUpserted(ctx context.Context, post *domain.Post) error
	PostDeleted(ctx context.Context, id string) error
}

// WritePolicy gates the write operations of the HTTP resource.
// While WritesEnabled is false, CreateOrUpdatePost fails with domain.ErrForbidden and
// DeletePost fails with domain.ErrNotFound, before the store is consulted.
type WritePolicy struct {
	WritesEnabled bool
}

// PostService serves the post resource on top of a domain.PostStore.
type PostService struct {
	store    domain.PostStore
	markdown MarkdownRenderer
	policy   WritePolicy
	events   PostEventPublisher

	// at most one write per post id at a time
	locks *keyedMutex
}

// NewPostService wires the resource. events may be nil.
func NewPostService(store domain.PostStore, markdown MarkdownRenderer, policy WritePolicy, events PostEventPublisher) *PostService {
	return &PostService{
		store:    store,
		markdown: markdown,
		policy:   policy,
		events:   events,
		locks:    newKeyedMutex(),
	}
}

// ListPosts returns one page of summaries. An empty page is not an error.
func (s *PostService) ListPosts(ctx context.Context, page domain.Page) ([]domain.PostSummary, error) {
	summaries, err := s.store.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts on page %d: %w", page, err)
	}

	if summaries == nil {
		summaries = []domain.PostSummary{}
	}
	return summaries, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	post, found, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", id, err)
	}
	if !found {
		return nil, domain.ErrNotFound
	}

	return post, nil
}

func (s *PostService) CreateOrUpdatePost(ctx context.Context, id string, update domain.PostUpdate) (domain.SuccessResponse, error) {
	if !s.policy.WritesEnabled {
		return domain.SuccessResponse{}, domain.ErrForbidden
	}

	if _, err := s.upsert(ctx, id, update); err != nil {
		return domain.SuccessResponse{}, err
	}

	return domain.SuccessResponse{Success: true}, nil
}

func (s *PostService) DeletePost(ctx context.Context, id string) (domain.SuccessResponse, error) {
	if !s.policy.WritesEnabled {
		return domain.SuccessResponse{}, domain.ErrNotFound
	}

	if err := s.remove(ctx, id); err != nil {
		return domain.SuccessResponse{}, err
	}

	return domain.SuccessResponse{Success: true}, nil
}

// WritesEnabled reports whether CreateOrUpdatePost and DeletePost are open to callers.
func (s *PostService) WritesEnabled() bool {
	return s.policy.WritesEnabled
}

// upsert renders the body and writes the post. It is not subject to the write policy.
func (s *PostService) upsert(ctx context.Context, id string, update domain.PostUpdate) (*domain.Post, error) {
	result, err := s.markdown.Render([]byte(update.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to render post %s: %w", id, err)
	}
	update.HTML = string(result.HTMLContent)
	update.Snippet = result.Snippet

	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("gave up waiting to write post %s: %w", id, err)
	}
	defer unlock()

	post, err := s.store.Upsert(ctx, id, update)
	if errors.Is(err, domain.ErrForbidden) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write post %s: %w", id, err)
	}

	if s.events != nil {
		if err := s.events.PostUpserted(ctx, post); err != nil {
			log.Error().Err(err).Str("postID", id).Msg("Failed to publish post upserted event")
		}
	}

	return post, nil
}

// remove deletes the post. It is not subject to the write policy.
func (s *PostService) remove(ctx context.Context, id string) error {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return fmt.Errorf("gave up waiting to delete post %s: %w", id, err)
	}
	defer unlock()

	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete post %s: %w", id, err)
	}
	if !removed {
		return domain.ErrNotFound
	}

	if s.events != nil {
		if err := s.events.PostDeleted(ctx, id); err != nil {
			log.Error().Err(err).Str("postID", id).Msg("Failed to publish post deleted event")
		}
	}

	return nil
}
