package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/internal/store/storetest"
)

func TestRecentlyPasted(t *testing.T) {
	ctx := context.Background()
	clock := storetest.NewClock(t0, time.Minute)
	s := storetest.New(t, store.Options{Now: clock.Now})

	a := mustPut(t, s, text("a")).Item
	b := mustPut(t, s, text("b")).Item
	c := mustPut(t, s, text("c")).Item

	for _, id := range []uint{a.ID, b.ID, a.ID, c.ID} {
		if _, err := s.RecordPaste(ctx, id); err != nil {
			t.Fatalf("record paste %d: %v", id, err)
		}
	}

	if _, err := s.RecordPaste(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("paste missing item: %v", err)
	}

	if _, err := s.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	recent, err := s.RecentlyPasted(ctx, 10)
	if err != nil {
		t.Fatalf("recently pasted: %v", err)
	}

	if len(recent) != 2 {
		t.Fatalf("recent = %+v, want 2 entries", recent)
	}

	if recent[0].Item.ID != a.ID || recent[0].PasteCount != 2 {
		t.Fatalf("first = %+v", recent[0])
	}

	if recent[1].Item.ID != b.ID || recent[1].PasteCount != 1 {
		t.Fatalf("second = %+v", recent[1])
	}

	if !recent[0].LastPastedAt.After(recent[1].LastPastedAt) {
		t.Fatalf("paste times out of order: %v, %v", recent[0].LastPastedAt, recent[1].LastPastedAt)
	}

	limited, _ := s.RecentlyPasted(ctx, 1)
	if len(limited) != 1 {
		t.Fatalf("limit 1 = %d", len(limited))
	}
}

func TestPrunePastes(t *testing.T) {
	ctx := context.Background()
	clock := storetest.NewClock(t0, 0)
	s := storetest.New(t, store.Options{Now: clock.Now})

	item := mustPut(t, s, text("x")).Item

	_, _ = s.RecordPaste(ctx, item.ID)

	clock.Set(t0.Add(48 * time.Hour))
	_, _ = s.RecordPaste(ctx, item.ID)

	n, err := s.PrunePastes(ctx, t0.Add(24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("pruned = %d, %v", n, err)
	}

	if left, _ := s.CountPastes(ctx); left != 1 {
		t.Fatalf("pastes left = %d", left)
	}
}
