package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yeisme/clipvault/pkg/internal/model"
	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/internal/store/storetest"
	"github.com/yeisme/clipvault/pkg/internal/types"
)

func TestCreateTag(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	tag, err := s.CreateTag(ctx, "  work ", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if tag.Name != "work" || tag.Color != store.PaletteColor("work") {
		t.Fatalf("tag = %+v", tag)
	}

	if _, err := s.CreateTag(ctx, "work", "#000000"); !errors.Is(err, store.ErrNameConflict) {
		t.Fatalf("duplicate name: expected ErrNameConflict, got %v", err)
	}

	if _, err := s.CreateTag(ctx, " ", ""); !errors.Is(err, store.ErrNameRequired) {
		t.Fatalf("empty name: expected ErrNameRequired, got %v", err)
	}

	for _, c := range []string{"red", "#12345", "#gggggg", "#1234567"} {
		if _, err := s.CreateTag(ctx, "c"+c, c); !errors.Is(err, store.ErrInvalidColor) {
			t.Fatalf("color %q: expected ErrInvalidColor, got %v", c, err)
		}
	}

	colored, err := s.CreateTag(ctx, "home", "#ABCDEF")
	if err != nil || colored.Color != "#abcdef" {
		t.Fatalf("colored tag = %+v, %v", colored, err)
	}
}

func TestSystemTags(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t, store.Options{SystemTags: []string{"favorite", "pinned"}})

	all, err := s.ListTags(ctx, true)
	if err != nil || len(all) != 2 {
		t.Fatalf("list with system = %v, %v", all, err)
	}

	user, _ := s.ListTags(ctx, false)
	if len(user) != 0 {
		t.Fatalf("system tags leaked into user listing: %v", user)
	}

	if _, err := s.DeleteTag(ctx, all[0].ID); !errors.Is(err, store.ErrSystemTag) {
		t.Fatalf("delete system tag: expected ErrSystemTag, got %v", err)
	}

	if err := s.EnsureSystemTags(ctx, []string{"favorite", "pinned"}); err != nil {
		t.Fatalf("ensure twice: %v", err)
	}

	if n, _ := s.CountTags(ctx); n != 2 {
		t.Fatalf("tag count = %d, want 2", n)
	}
}

func TestTagCascade(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	tag, _ := s.CreateTag(ctx, "batch", "")

	var ids []uint

	for _, c := range []string{"a", "b", "c"} {
		res := mustPut(t, s, text(c))
		ids = append(ids, res.Item.ID)

		if err := s.Attach(ctx, res.Item.ID, tag.ID); err != nil {
			t.Fatalf("attach: %v", err)
		}
	}

	// 重复关联不报错
	if err := s.Attach(ctx, ids[0], tag.ID); err != nil {
		t.Fatalf("attach twice: %v", err)
	}

	deleted, err := s.DeleteTag(ctx, tag.ID)
	if err != nil || deleted.Name != "batch" {
		t.Fatalf("delete tag: %+v, %v", deleted, err)
	}

	var links int64
	s.DB().Model(&model.ItemTag{}).Count(&links)

	if links != 0 {
		t.Fatalf("links after tag delete = %d", links)
	}

	if n, _ := s.Count(ctx); n != 3 {
		t.Fatalf("items after tag delete = %d, want 3", n)
	}

	if _, err := s.DeleteTag(ctx, tag.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("delete twice: %v", err)
	}
}

func TestAttachMissing(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	res := mustPut(t, s, text("x"))
	tag, _ := s.CreateTag(ctx, "t", "")

	if err := s.Attach(ctx, 404, tag.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing item: %v", err)
	}

	if err := s.Attach(ctx, res.Item.ID, 404); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing tag: %v", err)
	}

	if err := s.Detach(ctx, res.Item.ID, tag.ID); err != nil {
		t.Fatalf("detach without link: %v", err)
	}

	if _, err := s.ItemTags(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("item tags of missing item: %v", err)
	}
}

func TestItemsByTags(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	red, _ := s.CreateTag(ctx, "red", "")
	blue, _ := s.CreateTag(ctx, "blue", "")

	onlyRed := mustPut(t, s, text("only red")).Item
	both := mustPut(t, s, text("both")).Item
	mustPut(t, s, text("none"))

	_ = s.Attach(ctx, onlyRed.ID, red.ID)
	_ = s.Attach(ctx, both.ID, red.ID)
	_ = s.Attach(ctx, both.ID, blue.ID)

	anyItems, err := s.ItemsByTags(ctx, []uint{red.ID, blue.ID}, types.TagModeAny)
	if err != nil || len(anyItems) != 2 || anyItems[0].ID != both.ID {
		t.Fatalf("any = %v, %v", contents(anyItems), err)
	}

	allItems, err := s.ItemsByTags(ctx, []uint{red.ID, blue.ID, blue.ID}, types.TagModeAll)
	if err != nil || len(allItems) != 1 || allItems[0].ID != both.ID {
		t.Fatalf("all = %v, %v", contents(allItems), err)
	}

	tags, _ := s.ItemTags(ctx, both.ID)
	if len(tags) != 2 || tags[0].Name != "blue" || tags[1].Name != "red" {
		t.Fatalf("item tags = %+v", tags)
	}

	if err := s.Detach(ctx, both.ID, blue.ID); err != nil {
		t.Fatalf("detach: %v", err)
	}

	if allItems, _ := s.ItemsByTags(ctx, []uint{red.ID, blue.ID}, types.TagModeAll); len(allItems) != 0 {
		t.Fatalf("all after detach = %v", contents(allItems))
	}

	if none, _ := s.ItemsByTags(ctx, nil, types.TagModeAny); len(none) != 0 {
		t.Fatal("empty tag list must match nothing")
	}
}
