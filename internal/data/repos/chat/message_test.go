package chat

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/observer-backend/internal/data/repos/testutil"
	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
)

func TestChatMessageRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewChatMessageRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	base := time.Now().UTC().Add(-time.Minute)
	for i, text := range []string{"one", "two", "three"} {
		if _, err := repo.Create(dbc, &types.ChatMessage{
			ChatID:    "general",
			Sender:    "operator_k",
			Content:   text,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := repo.Create(dbc, &types.ChatMessage{ChatID: "other", Sender: "x", Content: "noise"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(dbc, &types.ChatMessage{Sender: "x", Content: "no channel"}); err == nil {
		t.Fatalf("Create without chat_id: expected error")
	}

	recent, err := repo.ListRecent(dbc, "general", 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "two" || recent[1].Content != "three" {
		t.Fatalf("ListRecent: unexpected order %+v", recent)
	}

	since, err := repo.ListSince(dbc, "general", base, 0)
	if err != nil {
		t.Fatalf("ListSince: %v", err)
	}
	if len(since) != 2 {
		t.Fatalf("ListSince: want=2 got=%d", len(since))
	}
}
