package progression

import (
	"context"
	"sync"
	"testing"

	"github.com/yungbote/observer-backend/internal/data/repos/testutil"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
)

func TestUserVariableRepo_IncrementAndSet(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserVariableRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	got, err := repo.Get(dbc, "u1", "total_xp")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if got != 0 {
		t.Fatalf("Get missing: want=0 got=%d", got)
	}

	v, err := repo.Increment(dbc, "u1", "total_xp", 90)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if v != 90 {
		t.Fatalf("Increment first: want=90 got=%d", v)
	}
	v, err = repo.Increment(dbc, "u1", "total_xp", 20)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if v != 110 {
		t.Fatalf("Increment second: want=110 got=%d", v)
	}

	if err := repo.Set(dbc, "u1", "total_xp", 7); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = repo.Get(dbc, "u1", "total_xp")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 7 {
		t.Fatalf("Get after Set: want=7 got=%d", got)
	}

	rows, err := repo.ListByUser(dbc, "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 1 || rows[0].VarKey != "total_xp" {
		t.Fatalf("ListByUser: unexpected %+v", rows)
	}
}

func TestUserVariableRepo_IncrementClamped(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserVariableRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	cases := []struct {
		delta int64
		want  int64
	}{
		{delta: 150, want: 100},
		{delta: -30, want: 70},
		{delta: -500, want: 0},
		{delta: 5, want: 5},
	}
	for i, tc := range cases {
		v, err := repo.IncrementClamped(dbc, "u1", "anomaly_score", tc.delta, 0, 100)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if v != tc.want {
			t.Fatalf("case %d: want=%d got=%d", i, tc.want, v)
		}
	}
}

func TestUserVariableRepo_ConcurrentIncrements(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserVariableRepo(db, testutil.Logger(t))
	ctx := context.Background()

	if err := repo.Set(dbctx.Context{Ctx: ctx}, "u1", "total_xp", 40); err != nil {
		t.Fatalf("Set: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(d int64) {
			defer wg.Done()
			if _, err := repo.Increment(dbctx.Context{Ctx: ctx}, "u1", "total_xp", d); err != nil {
				errs <- err
			}
		}(int64(i + 1))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Increment: %v", err)
	}

	got, err := repo.Get(dbctx.Context{Ctx: ctx}, "u1", "total_xp")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// 40 + (1+2+...+16)
	if want := int64(40 + workers*(workers+1)/2); got != want {
		t.Fatalf("total: want=%d got=%d", want, got)
	}
}
