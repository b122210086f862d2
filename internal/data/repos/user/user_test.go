package user

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/yungbote/observer-backend/internal/data/repos/storeerr"
	"github.com/yungbote/observer-backend/internal/data/repos/testutil"
	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	created, err := repo.Create(dbc, []*types.User{
		{Username: "operator_k", Division: " Signals ", IsActive: true},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == "" {
		t.Fatalf("Create: unexpected %+v", created)
	}
	if created[0].Division != "signals" {
		t.Fatalf("Create division: want=signals got=%q", created[0].Division)
	}

	got, err := repo.GetByID(dbc, created[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Username != "operator_k" {
		t.Fatalf("GetByID: unexpected %+v", got)
	}

	byName, err := repo.GetByUsername(dbc, "operator_k")
	if err != nil || byName.ID != created[0].ID {
		t.Fatalf("GetByUsername: got=%+v err=%v", byName, err)
	}

	_, err = repo.GetByID(dbc, "missing")
	if !errors.Is(err, storeerr.ErrNotFound) {
		t.Fatalf("GetByID missing: want ErrNotFound got %v", err)
	}

	ok, err := repo.ActiveIDExists(dbc, created[0].ID)
	if err != nil || !ok {
		t.Fatalf("ActiveIDExists: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ActiveIDExists(dbc, "U1")
	if err != nil || ok {
		t.Fatalf("ActiveIDExists unknown: ok=%v err=%v", ok, err)
	}
}

func TestUserRepo_TargetResolution(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	a := testutil.SeedUser(t, ctx, db, "a", "signals")
	b := testutil.SeedUser(t, ctx, db, "b", "signals")
	c := testutil.SeedUser(t, ctx, db, "c", "archive")
	d := testutil.SeedInactiveUser(t, ctx, db, "d", "signals")
	e := testutil.SeedUser(t, ctx, db, "e", "archive")

	testutil.SeedProgress(t, ctx, db, a.ID, 700, 3)
	testutil.SeedProgress(t, ctx, db, b.ID, 300, 2)
	testutil.SeedProgress(t, ctx, db, c.ID, 2600, 5)
	testutil.SeedProgress(t, ctx, db, d.ID, 2600, 5)
	_ = e // no progress row: level 0

	all, err := repo.ListActiveIDs(dbc)
	if err != nil {
		t.Fatalf("ListActiveIDs: %v", err)
	}
	assertIDs(t, "all", all, a.ID, b.ID, c.ID, e.ID)

	sig, err := repo.ListActiveIDsByDivision(dbc, "SIGNALS")
	if err != nil {
		t.Fatalf("ListActiveIDsByDivision: %v", err)
	}
	assertIDs(t, "division", sig, a.ID, b.ID)

	lvl3, err := repo.ListActiveIDsAtLeastLevel(dbc, 3)
	if err != nil {
		t.Fatalf("ListActiveIDsAtLeastLevel: %v", err)
	}
	assertIDs(t, "level:3", lvl3, a.ID, c.ID)

	lvl0, err := repo.ListActiveIDsAtLeastLevel(dbc, 0)
	if err != nil {
		t.Fatalf("ListActiveIDsAtLeastLevel: %v", err)
	}
	assertIDs(t, "level:0", lvl0, a.ID, b.ID, c.ID, e.ID)
}

func assertIDs(t *testing.T, name string, got []string, want ...string) {
	t.Helper()
	g := append([]string(nil), got...)
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)
	if len(g) != len(w) {
		t.Fatalf("%s: want=%v got=%v", name, w, g)
	}
	for i := range g {
		if g[i] != w[i] {
			t.Fatalf("%s: want=%v got=%v", name, w, g)
		}
	}
}
