package remote

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsSchemaMismatch(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"undefined column", &pgconn.PgError{Code: "42703"}, true},
		{"wrapped undefined column", fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "42703"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"driver message", errors.New(`column "original_date" of relation "documents" does not exist`), true},
		{"network", errors.New("dial tcp: connection refused"), false},
	}

	for _, tc := range testCases {
		if got := IsSchemaMismatch(tc.err); got != tc.want {
			t.Errorf("%s: IsSchemaMismatch = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestClassifyWrapsSentinel(t *testing.T) {
	err := classify("upsert documents", &pgconn.PgError{Code: "42703", Message: "column does not exist"})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}

	err = classify("list documents", errors.New("timeout"))
	if errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("unexpected schema mismatch for %v", err)
	}
}

func TestProjectionColumns(t *testing.T) {
	legacy := ProjectionLegacy.Columns()
	full := ProjectionFull.Columns()

	if legacy[0] != "id" || full[0] != "id" {
		t.Fatal("id must lead both projections")
	}

	inFull := make(map[string]bool, len(full))
	for _, c := range full {
		inFull[c] = true
	}
	for _, c := range legacy {
		if !inFull[c] {
			t.Errorf("legacy column %s missing from full projection", c)
		}
	}
	for _, c := range legacy {
		if c == "original_date" || c == "correction_started_at" {
			t.Errorf("legacy projection must not write %s", c)
		}
	}
}
