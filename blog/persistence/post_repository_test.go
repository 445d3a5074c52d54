package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dfryer1193/blogapi/blog/domain"
	"github.com/dfryer1193/blogapi/shared/db/sqlite"
)

// setupTestRepository creates a migrated in-memory SQLite store
func setupTestRepository(t *testing.T, pageSize int) *SQLitePostRepository {
	t.Helper()
	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: ":memory:"})
	if err := database.Connect(); err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewPostRepository(database.DB(), pageSize)
}

// fixedClock returns a clock that advances one minute per call
func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func TestNewPostRepository_DefaultPageSize(t *testing.T) {
	repo := setupTestRepository(t, 0)
	if repo.pageSize != DefaultPageSize {
		t.Errorf("pageSize = %d, want %d", repo.pageSize, DefaultPageSize)
	}
}

func TestPostRepository_UpsertInsertsThenUpdates(t *testing.T) {
	repo := setupTestRepository(t, 10)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = fixedClock(base)
	ctx := context.Background()

	created, err := repo.Upsert(ctx, "001", domain.PostUpdate{
		Title:   "Original Title",
		Body:    "Original body",
		HTML:    "<p>Original body</p>",
		Snippet: "Original body",
	})
	if err != nil {
		t.Fatalf("Upsert (insert) failed: %v", err)
	}
	if created.ID != "001" || created.Title != "Original Title" {
		t.Errorf("created = %+v", created)
	}
	if !created.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("CreatedAt = %v, want %v", created.CreatedAt, base.Add(time.Minute))
	}

	updated, err := repo.Upsert(ctx, "001", domain.PostUpdate{Title: "Updated Title", Body: "Updated body"})
	if err != nil {
		t.Fatalf("Upsert (update) failed: %v", err)
	}

	retrieved, found, err := repo.Find(ctx, "001")
	if err != nil || !found {
		t.Fatalf("Find = %v, %v", found, err)
	}
	if retrieved.Title != "Updated Title" || retrieved.Body != "Updated body" {
		t.Errorf("retrieved = %+v", retrieved)
	}
	if retrieved.HTML != "" {
		t.Errorf("HTML = %q, want replaced with empty", retrieved.HTML)
	}
	if !retrieved.UpdatedAt.Equal(updated.UpdatedAt) || !retrieved.UpdatedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("UpdatedAt = %v, want %v", retrieved.UpdatedAt, base.Add(2*time.Minute))
	}
	if !retrieved.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v (should not change on update)", retrieved.CreatedAt, created.CreatedAt)
	}
}

func TestPostRepository_UpsertEmptyID(t *testing.T) {
	repo := setupTestRepository(t, 10)

	if _, err := repo.Upsert(context.Background(), "", domain.PostUpdate{Title: "x"}); err == nil {
		t.Error("Upsert should return error for empty ID")
	}
}

func TestPostRepository_UpsertCancelledContext(t *testing.T) {
	repo := setupTestRepository(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.Upsert(ctx, "001", domain.PostUpdate{Title: "x"}); err == nil {
		t.Fatal("Upsert should fail with a cancelled context")
	}

	if _, found, _ := repo.Find(context.Background(), "001"); found {
		t.Error("cancelled upsert must not leave a post behind")
	}
}

func TestPostRepository_FindMissing(t *testing.T) {
	repo := setupTestRepository(t, 10)

	for _, id := range []string{"nonexistent", ""} {
		post, found, err := repo.Find(context.Background(), id)
		if err != nil {
			t.Fatalf("Find(%q) error = %v", id, err)
		}
		if found || post != nil {
			t.Errorf("Find(%q) = %v, %v; want nil, false", id, post, found)
		}
	}
}

func TestPostRepository_Remove(t *testing.T) {
	repo := setupTestRepository(t, 10)
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, "001", domain.PostUpdate{Title: "Doomed"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	removed, err := repo.Remove(ctx, "001")
	if err != nil || !removed {
		t.Fatalf("first Remove = %v, %v; want true, nil", removed, err)
	}

	removed, err = repo.Remove(ctx, "001")
	if err != nil || removed {
		t.Fatalf("second Remove = %v, %v; want false, nil", removed, err)
	}
}

func TestPostRepository_ListPagination(t *testing.T) {
	repo := setupTestRepository(t, 2)
	repo.now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("%03d", i)
		if _, err := repo.Upsert(ctx, id, domain.PostUpdate{Title: "Post " + id, Snippet: "Snippet " + id}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	pages := [][]string{
		{"005", "004"},
		{"003", "002"},
		{"001"},
		{},
	}

	for page, want := range pages {
		got, err := repo.List(ctx, domain.Page(page))
		if err != nil {
			t.Fatalf("List(%d) failed: %v", page, err)
		}
		if got == nil {
			t.Fatalf("List(%d) returned nil, want empty slice", page)
		}
		if len(got) != len(want) {
			t.Fatalf("List(%d) returned %d posts, want %d", page, len(got), len(want))
		}
		for i, id := range want {
			if got[i].ID != id {
				t.Errorf("List(%d)[%d].ID = %s, want %s", page, i, got[i].ID, id)
			}
		}
	}

	first, _ := repo.List(ctx, 0)
	if first[0].Title != "Post 005" || first[0].Snippet != "Snippet 005" {
		t.Errorf("summary = %+v", first[0])
	}
}

func TestPostRepository_ListEmpty(t *testing.T) {
	repo := setupTestRepository(t, 10)

	posts, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("List = %v, want empty slice", posts)
	}
}
