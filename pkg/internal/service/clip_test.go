package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/clipvault/pkg/cache"
	"github.com/yeisme/clipvault/pkg/internal/hub"
	"github.com/yeisme/clipvault/pkg/internal/ingest"
	"github.com/yeisme/clipvault/pkg/internal/service"
	"github.com/yeisme/clipvault/pkg/internal/storage/kv"
	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/internal/store/storetest"
	"github.com/yeisme/clipvault/pkg/internal/types"
)

type fixture struct {
	svc *service.ClipService
	gw  *ingest.Gateway
	st  *store.Store
	sub *hub.Subscription
}

func newFixture(t *testing.T, opts store.Options) *fixture {
	t.Helper()

	opts.Now = storetest.NewClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), time.Second).Now
	st := storetest.New(t, opts)

	h := hub.New(hub.Options{BufferSize: 64, SendTimeout: 5 * time.Second})
	sub := h.Subscribe()
	gw := ingest.New(st, h, ingest.Options{QueueSize: 16})

	memKV, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	svc := service.NewClipService(gw, h, cache.NewCache(memKV), service.Options{
		PageSize:    2,
		MaxPageSize: 3,
		CacheTTL:    time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- gw.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-done
		h.Close()
	})

	return &fixture{svc: svc, gw: gw, st: st, sub: sub}
}

func (f *fixture) put(t *testing.T, typ, content string) uint {
	t.Helper()

	res, err := f.gw.Submit(context.Background(), types.Event{Type: typ, Content: content})
	if err != nil {
		t.Fatalf("submit %q: %v", content, err)
	}

	f.drain()

	return res.Item.ID
}

// drain 丢弃已经到达的通知.
func (f *fixture) drain() {
	for {
		select {
		case <-f.sub.C():
		case <-time.After(20 * time.Millisecond):
			return
		}
	}
}

func (f *fixture) next(t *testing.T) hub.Notification {
	t.Helper()

	select {
	case n := <-f.sub.C():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return hub.Notification{}
	}
}

func TestTagMutationsNotify(t *testing.T) {
	f := newFixture(t, store.Options{})
	ctx := context.Background()
	id := f.put(t, "text", "tag me")

	tag, err := f.svc.CreateTag(ctx, "work", "")
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}

	steps := []struct {
		name string
		run  func() error
		op   string
		item uint
	}{
		{"create", func() error { return nil }, types.TagOpCreated, 0},
		{"attach", func() error { return f.svc.AttachTag(ctx, id, tag.ID) }, types.TagOpAttached, id},
		{"detach", func() error { return f.svc.DetachTag(ctx, id, tag.ID) }, types.TagOpDetached, id},
		{"delete", func() error { _, err := f.svc.DeleteTag(ctx, tag.ID); return err }, types.TagOpDeleted, 0},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}

		n := f.next(t)
		if n.Event != types.EventTagsChanged {
			t.Fatalf("%s: event = %s", step.name, n.Event)
		}

		data, ok := n.Data.(types.TagsEventData)
		if !ok || data.Op != step.op || data.TagID != tag.ID || data.ItemID != step.item {
			t.Errorf("%s: data = %+v", step.name, n.Data)
		}
	}
}

func TestItemMutationsNotify(t *testing.T) {
	f := newFixture(t, store.Options{})
	ctx := context.Background()
	id := f.put(t, "text", "s3cr3t")

	item, err := f.svc.ToggleSecret(ctx, id, "bank pin")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if !item.IsSecret || item.Content != "" {
		t.Errorf("secret projection leaked content: %+v", item)
	}

	if n := f.next(t); n.Event != types.EventItemUpdated {
		t.Errorf("toggle event = %s", n.Event)
	}

	if _, err := f.svc.Rename(ctx, id, "pin"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if n := f.next(t); n.Event != types.EventItemUpdated {
		t.Errorf("rename event = %s", n.Event)
	}

	if err := f.svc.DeleteItem(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	n := f.next(t)
	if data, ok := n.Data.(types.ItemEventData); n.Event != types.EventItemDeleted || !ok || data.ID != id {
		t.Errorf("delete notification = %+v", n)
	}
}

func TestFailedMutationIsSilent(t *testing.T) {
	f := newFixture(t, store.Options{})
	ctx := context.Background()

	if _, err := f.svc.Rename(ctx, 999, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := f.svc.ToggleSecret(ctx, 999, " "); !errors.Is(err, store.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}

	select {
	case n := <-f.sub.C():
		t.Fatalf("unexpected notification %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHistoryCacheFollowsWrites(t *testing.T) {
	f := newFixture(t, store.Options{})
	ctx := context.Background()

	f.put(t, "text", "one")
	f.put(t, "text", "two")

	page, err := f.svc.GetHistory(ctx, types.GetHistoryParams{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	if page.Total != 2 || page.Page != 1 || page.PageSize != 2 {
		t.Fatalf("page = %+v", page)
	}

	// 命中缓存
	again, err := f.svc.GetHistory(ctx, types.GetHistoryParams{Page: 1, PageSize: 2})
	if err != nil || again.Total != 2 {
		t.Fatalf("cached history = %+v, %v", again, err)
	}

	f.put(t, "text", "three")

	page, err = f.svc.GetHistory(ctx, types.GetHistoryParams{})
	if err != nil {
		t.Fatalf("history after write: %v", err)
	}

	if page.Total != 3 || page.Items[0].Content != "three" {
		t.Errorf("stale history after write: %+v", page)
	}
}

func TestHistoryCacheScopedToStoreEpoch(t *testing.T) {
	ctx := context.Background()
	client := storetest.OpenDB(t)

	sharedKV, err := kv.NewMemoryKV(ctx, nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	shared := cache.NewCache(sharedKV)

	start := func() (*service.ClipService, *ingest.Gateway) {
		st, err := store.Open(ctx, client.DB, store.Options{})
		if err != nil {
			t.Fatalf("open store: %v", err)
		}

		h := hub.New(hub.Options{BufferSize: 8, SendTimeout: time.Second})
		gw := ingest.New(st, h, ingest.Options{QueueSize: 4})

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)

		go func() { done <- gw.Run(runCtx) }()

		t.Cleanup(func() {
			cancel()
			<-done
			h.Close()
		})

		return service.NewClipService(gw, h, shared, service.Options{CacheTTL: time.Minute}), gw
	}

	first, gw := start()

	page, err := first.GetHistory(ctx, types.GetHistoryParams{})
	if err != nil || page.Total != 0 {
		t.Fatalf("empty history = %+v, %v", page, err)
	}

	if _, err := gw.Submit(ctx, types.Event{Type: "text", Content: "hello"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 同一数据库与 KV 上重新打开，写入代数从零开始
	restarted, _ := start()

	page, err = restarted.GetHistory(ctx, types.GetHistoryParams{})
	if err != nil {
		t.Fatalf("history after reopen: %v", err)
	}

	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Content != "hello" {
		t.Errorf("history after reopen = %+v, want the item written before", page)
	}
}

func TestHistoryPageSizeClamped(t *testing.T) {
	f := newFixture(t, store.Options{})

	for _, c := range []string{"a", "b", "c", "d", "e"} {
		f.put(t, "text", c)
	}

	page, err := f.svc.GetHistory(context.Background(), types.GetHistoryParams{Page: 2, PageSize: 100, SortOrder: "asc"})
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	if page.PageSize != 3 || len(page.Items) != 2 || page.Items[0].Content != "d" {
		t.Errorf("page = %+v", page)
	}
}

func TestHistoryWithFiltersUsesSearch(t *testing.T) {
	f := newFixture(t, store.Options{})

	f.put(t, "text", "plain")
	f.put(t, "file", "file:///tmp/a.txt")
	f.put(t, "text", "more")

	page, err := f.svc.GetHistory(context.Background(), types.GetHistoryParams{
		Filters: &types.Filters{Kinds: []string{"file"}},
	})
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	if page.Total != 1 || page.Items[0].Kind != "file" {
		t.Errorf("filtered page = %+v", page)
	}
}

func TestSearchCached(t *testing.T) {
	f := newFixture(t, store.Options{})
	ctx := context.Background()

	f.put(t, "text", "quick brown fox")

	res, err := f.svc.Search(ctx, types.SearchParams{Query: "fox"})
	if err != nil || len(res.Items) != 1 {
		t.Fatalf("search = %+v, %v", res, err)
	}

	f.put(t, "text", "lazy fox")

	res, err = f.svc.Search(ctx, types.SearchParams{Query: "fox"})
	if err != nil || len(res.Items) != 2 {
		t.Errorf("search after write = %+v, %v", res, err)
	}
}

func TestGetItemLoadsBlobAndSecretContent(t *testing.T) {
	blobs := storetest.NewBlobs()
	f := newFixture(t, store.Options{Blobs: blobs, BlobThreshold: 16})
	ctx := context.Background()

	payload := `{"mimeType":"image/png","data":"` + strings.Repeat("QUJD", 16) + `"}`
	id := f.put(t, "image/screenshot", payload)

	if _, err := f.svc.ToggleSecret(ctx, id, "screenshot"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	detail, err := f.svc.GetItem(ctx, id)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}

	if detail.Content != payload {
		t.Errorf("content = %q", detail.Content)
	}

	if detail.BlobKey == "" || blobs.Len() != 1 {
		t.Errorf("expected blob-backed item, key=%q blobs=%d", detail.BlobKey, blobs.Len())
	}

	if _, err := f.svc.GetItem(ctx, id+100); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPastesAndStats(t *testing.T) {
	f := newFixture(t, store.Options{SystemTags: []string{"favorites"}})
	ctx := context.Background()

	a := f.put(t, "text", "a")
	b := f.put(t, "text", "b")

	for _, id := range []uint{a, b, a} {
		if _, err := f.svc.RecordPaste(ctx, id); err != nil {
			t.Fatalf("record paste %d: %v", id, err)
		}
	}

	recent, err := f.svc.RecentlyPasted(ctx, 10)
	if err != nil {
		t.Fatalf("recently pasted: %v", err)
	}

	if len(recent) != 2 || recent[0].Item.ID != a || recent[0].PasteCount != 2 {
		t.Errorf("recent = %+v", recent)
	}

	st, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if st.Items != 2 || st.ByKind["text"] != 2 || st.PasteEvents != 3 || st.Tags != 1 || st.Subscribers != 1 {
		t.Errorf("stats = %+v", st)
	}

	if st.Generation != f.st.Generation() {
		t.Errorf("generation = %d, store = %d", st.Generation, f.st.Generation())
	}
}
