package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE test_table (id INTEGER PRIMARY KEY, value TEXT)`)
	if err != nil {
		db.Close()
		t.Fatalf("failed to create table: %v", err)
	}

	return db
}

func count(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM test_table`).Scan(&n); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return n
}

func TestWithTx_Success(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO test_table (value) VALUES (?)`, "test")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	if n := count(t, db); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	testErr := errors.New("test error")

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO test_table (value) VALUES (?)`, "first"); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO test_table (value) VALUES (?)`, "second"); err != nil {
			return err
		}
		return testErr
	})

	if !errors.Is(err, testErr) {
		t.Fatalf("WithTx should return the error: got %v, want %v", err, testErr)
	}
	if n := count(t, db); n != 0 {
		t.Errorf("count = %d, want 0 (rolled back)", n)
	}
}

func TestWithTx_CanceledContext(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WithTx(ctx, db, func(*sql.Tx) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("WithTx should fail on a canceled context")
	}
	if called {
		t.Error("fn must not run without a transaction")
	}
}

func TestNullInt64Value(t *testing.T) {
	tests := []struct {
		name string
		in   sql.NullInt64
		want int64
	}{
		{"valid", sql.NullInt64{Int64: 123, Valid: true}, 123},
		{"invalid", sql.NullInt64{Int64: 123, Valid: false}, 0},
		{"valid zero", sql.NullInt64{Int64: 0, Valid: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NullInt64Value(tt.in); got != tt.want {
				t.Errorf("NullInt64Value() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNullStringValue(t *testing.T) {
	tests := []struct {
		name string
		in   sql.NullString
		want string
	}{
		{"valid", sql.NullString{String: "Album", Valid: true}, "Album"},
		{"invalid", sql.NullString{String: "Album", Valid: false}, ""},
		{"valid empty", sql.NullString{String: "", Valid: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NullStringValue(tt.in); got != tt.want {
				t.Errorf("NullStringValue() = %q, want %q", got, tt.want)
			}
		})
	}
}
