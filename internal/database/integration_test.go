package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

const testMigrationsPath = "../../migrations"

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(testMigrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{"kids", "tasks", "meta", "streaks", "migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running again must not re-apply anything
	if err := db.RunMigrations(testMigrationsPath); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("migrations recorded = %d, want 1", count)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO kids (id, name, color) VALUES (?, ?, ?)", "k1", "Ava", "#ff0000")
		return err
	})
	if err != nil {
		t.Fatalf("Committed transaction failed: %v", err)
	}

	boom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO kids (id, name, color) VALUES (?, ?, ?)", "k2", "Ben", "#00ff00"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want %v", err, boom)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kids").Scan(&count); err != nil {
		t.Fatalf("Failed to count kids: %v", err)
	}
	if count != 1 {
		t.Errorf("kids = %d, want 1 (rolled back insert must not persist)", count)
	}
}

// TestForeignKeysCascade checks that every pooled connection enforces foreign keys
func TestForeignKeysCascade(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "INSERT INTO kids (id, name, color) VALUES (?, ?, ?)", "k1", "Ava", "#ff0000"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO tasks (id, kid_id, title) VALUES (?, ?, ?)", "t1", "k1", "Brush teeth"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO tasks (id, kid_id, title) VALUES (?, ?, ?)", "t2", "missing", "Orphan"); err == nil {
		t.Error("insert with unknown kid should fail")
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM kids WHERE id = ?", "k1"); err != nil {
		t.Fatal(err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("tasks after kid delete = %d, want 0", count)
	}
}
