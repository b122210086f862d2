package notify

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/observer-backend/internal/data/repos/testutil"
	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
)

func TestNotificationRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewNotificationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	n1, err := repo.Create(dbc, &types.Notification{UserID: "u1", BatchID: "b1", Type: "system", Title: "t1", Body: "x"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(dbc, &types.Notification{UserID: "u1", BatchID: "b1", Type: "system", Title: "t2", Body: "x", ExpiresAt: &future}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(dbc, &types.Notification{UserID: "u1", BatchID: "b2", Type: "system", Title: "expired", Body: "x", ExpiresAt: &past}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	other, err := repo.Create(dbc, &types.Notification{UserID: "u2", BatchID: "b1", Type: "system", Title: "t", Body: "x"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := repo.ListByUser(dbc, "u1", false, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByUser: want=2 got=%d", len(list))
	}

	// u1 cannot mark u2's row
	changed, err := repo.MarkRead(dbc, "u1", []string{n1.ID, other.ID})
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if changed != 1 {
		t.Fatalf("MarkRead: want=1 got=%d", changed)
	}

	unread, err := repo.CountUnread(dbc, "u1")
	if err != nil {
		t.Fatalf("CountUnread: %v", err)
	}
	if unread != 1 {
		t.Fatalf("CountUnread u1: want=1 got=%d", unread)
	}
	unread, err = repo.CountUnread(dbc, "u2")
	if err != nil {
		t.Fatalf("CountUnread: %v", err)
	}
	if unread != 1 {
		t.Fatalf("CountUnread u2: want=1 got=%d", unread)
	}

	onlyUnread, err := repo.ListByUser(dbc, "u1", true, 0)
	if err != nil {
		t.Fatalf("ListByUser unread: %v", err)
	}
	if len(onlyUnread) != 1 || onlyUnread[0].Title != "t2" {
		t.Fatalf("ListByUser unread: %+v", onlyUnread)
	}

	n, err := repo.CountByBatch(dbc, "b1")
	if err != nil {
		t.Fatalf("CountByBatch: %v", err)
	}
	if n != 3 {
		t.Fatalf("CountByBatch: want=3 got=%d", n)
	}
}
