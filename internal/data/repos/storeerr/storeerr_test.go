package storeerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		unavailable bool
		notFound    bool
	}{
		{name: "deadline", err: context.DeadlineExceeded, unavailable: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, unavailable: true},
		{name: "connection", err: &pgconn.PgError{Code: "08006"}, unavailable: true},
		{name: "sqlite locked", err: errors.New("database is locked"), unavailable: true},
		{name: "not found", err: gorm.ErrRecordNotFound, notFound: true},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}},
		{name: "plain", err: errors.New("boom")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify("op", tc.err)
			if errors.Is(got, ErrUnavailable) != tc.unavailable {
				t.Fatalf("unavailable: want=%v got=%v (%v)", tc.unavailable, !tc.unavailable, got)
			}
			if errors.Is(got, ErrNotFound) != tc.notFound {
				t.Fatalf("not found: want=%v got=%v (%v)", tc.notFound, !tc.notFound, got)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("classified error must wrap the original")
			}
		})
	}
	if Classify("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatalf("pg 23505 should be a unique violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: fired_event.user_id")) {
		t.Fatalf("sqlite message should be a unique violation")
	}
	if IsUniqueViolation(errors.New("syntax error")) {
		t.Fatalf("unexpected unique violation")
	}
}
