package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every pooled connection would otherwise get its own in-memory database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE posts (id TEXT PRIMARY KEY, title TEXT NOT NULL)`)
	if err != nil {
		t.Fatalf("Failed to create posts table: %v", err)
	}

	return db
}

func countPosts(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count); err != nil {
		t.Fatalf("Failed to count posts: %v", err)
	}
	return count
}

func insertPost(ctx context.Context, db *sql.DB, id string) error {
	_, err := GetExecutor(ctx, db).ExecContext(ctx, "INSERT INTO posts (id, title) VALUES (?, ?)", id, "title "+id)
	return err
}

func TestRunInTransaction_Commit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := RunInTransaction(context.Background(), db, func(txCtx context.Context) error {
		if _, ok := GetTx(txCtx); !ok {
			t.Error("Expected transaction in context")
		}
		return insertPost(txCtx, db, "001")
	})
	if err != nil {
		t.Fatalf("RunInTransaction failed: %v", err)
	}

	if got := countPosts(t, db); got != 1 {
		t.Errorf("Expected 1 row, got %d", got)
	}
}

func TestRunInTransaction_Rollback(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	errBoom := errors.New("boom")
	err := RunInTransaction(context.Background(), db, func(txCtx context.Context) error {
		if err := insertPost(txCtx, db, "001"); err != nil {
			return err
		}
		return errBoom
	})

	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want %v", err, errBoom)
	}
	if got := countPosts(t, db); got != 0 {
		t.Errorf("Expected 0 rows (rollback), got %d", got)
	}
}

func TestRunInTransaction_NestedReusesOuter(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := RunInTransaction(context.Background(), db, func(outerCtx context.Context) error {
		if err := insertPost(outerCtx, db, "outer"); err != nil {
			return err
		}

		return RunInTransaction(outerCtx, db, func(innerCtx context.Context) error {
			outerTx, _ := GetTx(outerCtx)
			innerTx, _ := GetTx(innerCtx)
			if outerTx != innerTx {
				t.Error("Expected nested transaction to reuse outer transaction")
			}
			return insertPost(innerCtx, db, "inner")
		})
	})
	if err != nil {
		t.Fatalf("RunInTransaction failed: %v", err)
	}

	if got := countPosts(t, db); got != 2 {
		t.Errorf("Expected 2 rows, got %d", got)
	}
}

func TestRunInTransaction_NestedRollback(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := RunInTransaction(context.Background(), db, func(outerCtx context.Context) error {
		if err := insertPost(outerCtx, db, "outer"); err != nil {
			return err
		}

		return RunInTransaction(outerCtx, db, func(innerCtx context.Context) error {
			if err := insertPost(innerCtx, db, "inner"); err != nil {
				return err
			}
			return sql.ErrTxDone
		})
	})
	if err == nil {
		t.Fatal("Expected error from RunInTransaction")
	}

	if got := countPosts(t, db); got != 0 {
		t.Errorf("Expected 0 rows (complete rollback), got %d", got)
	}
}

func TestRunInTransaction_CancelledBeforeCommit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	err := RunInTransaction(ctx, db, func(txCtx context.Context) error {
		if err := insertPost(txCtx, db, "001"); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if got := countPosts(t, db); got != 0 {
		t.Errorf("Expected 0 rows after cancellation, got %d", got)
	}
}

func TestRunInTransaction_PanicRollsBack(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("Expected panic to propagate")
			}
		}()
		_ = RunInTransaction(context.Background(), db, func(txCtx context.Context) error {
			if err := insertPost(txCtx, db, "001"); err != nil {
				return err
			}
			panic("write failed halfway")
		})
	}()

	if got := countPosts(t, db); got != 0 {
		t.Errorf("Expected 0 rows after panic, got %d", got)
	}
}

func TestGetExecutor(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	if executor := GetExecutor(ctx, db); executor != db {
		t.Error("Expected executor to be the database")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if executor := GetExecutor(WithTx(ctx, tx), db); executor != tx {
		t.Error("Expected executor to be the transaction")
	}
}
