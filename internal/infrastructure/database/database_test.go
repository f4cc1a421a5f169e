package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	return db
}

func TestOpen(t *testing.T) {
	t.Run("creates nested directory and file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "data", "nested", "history.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // test cleanup

		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
	})

	t.Run("in memory", func(t *testing.T) {
		db, err := Open(Config{Path: MemoryPath})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // test cleanup

		ctx := context.Background()
		if _, err := db.ExecContext(ctx, "CREATE TABLE t (v INTEGER)"); err != nil {
			t.Fatalf("CREATE error = %v", err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO t (v) VALUES (1)"); err != nil {
			t.Fatalf("INSERT error = %v", err)
		}

		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count); err != nil {
			t.Fatalf("SELECT error = %v", err)
		}
		if count != 1 {
			t.Errorf("count = %d, want 1", count)
		}
	})
}

func TestConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantWAL bool
	}{
		{"file with WAL", Config{Path: "/tmp/x.db", WALMode: true, BusyTimeout: 5}, true},
		{"file without WAL", Config{Path: "/tmp/x.db", BusyTimeout: 5}, false},
		{"memory ignores WAL", Config{Path: MemoryPath, WALMode: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := connectionString(tt.cfg)
			if !strings.HasPrefix(dsn, "file:"+tt.cfg.Path+"?") {
				t.Errorf("dsn = %q", dsn)
			}
			if got := strings.Contains(dsn, "_journal_mode=WAL"); got != tt.wantWAL {
				t.Errorf("WAL in %q = %v, want %v", dsn, got, tt.wantWAL)
			}
		})
	}

	if dsn := connectionString(Config{Path: "x.db", BusyTimeout: 5}); !strings.Contains(dsn, "_busy_timeout=5000") {
		t.Errorf("busy timeout not in milliseconds: %q", dsn)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	db, err := Open(Config{Path: MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close should fail")
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

func TestInTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE tx_test (value TEXT)"); err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}

	insert := func(value string, fail error) error {
		return db.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, "INSERT INTO tx_test (value) VALUES (?)", value); err != nil {
				return err
			}
			return fail
		})
	}

	if err := insert("kept", nil); err != nil {
		t.Fatalf("InTx() error = %v", err)
	}
	errAbort := errors.New("abort")
	if err := insert("rolled back", errAbort); !errors.Is(err, errAbort) {
		t.Fatalf("InTx() error = %v, want errAbort", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tx_test").Scan(&count); err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1 (only the committed insert)", count)
	}
}

func TestStats(t *testing.T) {
	db := openTestDB(t)

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
}
