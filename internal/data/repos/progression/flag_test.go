package progression

import (
	"context"
	"testing"

	"github.com/yungbote/observer-backend/internal/data/repos/testutil"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
)

func TestUserFlagRepo_LastWriteWins(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserFlagRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	if _, err := repo.Set(dbc, "u1", "met_archivist", "true", "event:intro"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := repo.Set(dbc, "u1", "met_archivist", "false", "admin"); err != nil {
		t.Fatalf("Set again: %v", err)
	}

	got, err := repo.Get(dbc, "u1", "met_archivist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Value != "false" {
		t.Fatalf("value: want=false got=%s", got.Value)
	}

	all, err := repo.ListByUser(dbc, "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListByUser: want=1 got=%d", len(all))
	}

	audit, err := repo.ListAudit(dbc, "u1", 10)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(audit) != 2 {
		t.Fatalf("audit rows: want=2 got=%d", len(audit))
	}
}
