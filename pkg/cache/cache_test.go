package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/clipvault/pkg/cache"
	"github.com/yeisme/clipvault/pkg/internal/storage/kv"
)

// page 测试用的缓存值.
type page struct {
	IDs   []uint `json:"ids"`
	Total int64  `json:"total"`
}

func newCache(t *testing.T) (*cache.Cache, kv.KVStore) {
	t.Helper()

	store, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })

	return cache.NewCache(store), store
}

func TestCache_GetMissing(t *testing.T) {
	c, _ := newCache(t)

	_, err := cache.Get[page](context.Background(), c, "history:1:nope")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected kv.ErrNotFound, got %v", err)
	}
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	want := page{IDs: []uint{3, 2, 1}, Total: 3}
	if err := cache.Set(ctx, c, "history:1:a", want, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := cache.Get[page](ctx, c, "history:1:a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Total != 3 || len(got.IDs) != 3 || got.IDs[0] != 3 {
		t.Errorf("got %+v, want %+v", got, want)
	}

	ok, err := c.Exists(ctx, "history:1:a")
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}

	if err := c.Delete(ctx, "history:1:a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if ok, _ := c.Exists(ctx, "history:1:a"); ok {
		t.Error("key should be gone after Delete")
	}
}

func TestCache_UndecodableValueIsMiss(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()

	if err := store.Set(ctx, "search:1:x", []byte("{not json"), 0); err != nil {
		t.Fatalf("raw set: %v", err)
	}

	calls := 0

	got, err := cache.GetOrSet(ctx, c, "search:1:x", func() (page, error) {
		calls++
		return page{Total: 7}, nil
	}, 0)
	if err != nil {
		t.Fatalf("GetOrSet: %v", err)
	}

	if calls != 1 || got.Total != 7 {
		t.Errorf("calls = %d, got = %+v", calls, got)
	}
}

func TestGetOrSet(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	calls := 0
	getter := func() (page, error) {
		calls++
		return page{IDs: []uint{5}, Total: 1}, nil
	}

	first, err := cache.GetOrSet(ctx, c, "history:2:b", getter, time.Minute)
	if err != nil {
		t.Fatalf("first: %v", err)
	}

	second, err := cache.GetOrSet(ctx, c, "history:2:b", getter, time.Minute)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if calls != 1 {
		t.Errorf("getter called %d times, want 1", calls)
	}

	if first.Total != second.Total || second.IDs[0] != 5 {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestGetOrSet_GetterError(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	boom := errors.New("getter error")

	_, err := cache.GetOrSet(ctx, c, "history:3:c", func() (page, error) {
		return page{}, boom
	}, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected getter error, got %v", err)
	}

	if ok, _ := c.Exists(ctx, "history:3:c"); ok {
		t.Error("failed load must not be cached")
	}
}

func TestGetOrSet_CoalescesConcurrentLoads(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	var calls atomic.Int32

	release := make(chan struct{})

	getter := func() (page, error) {
		calls.Add(1)
		<-release

		return page{Total: 42}, nil
	}

	const n = 8

	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)

	results := make([]page, n)
	errs := make([]error, n)

	started.Add(n)

	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			started.Done()
			results[i], errs[i] = cache.GetOrSet(ctx, c, "search:9:q", getter, 0)
		}()
	}

	started.Wait()
	// 给所有 goroutine 进入 singleflight 的时间
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("getter called %d times, want 1", got)
	}

	for i := range n {
		if errs[i] != nil || results[i].Total != 42 {
			t.Errorf("caller %d: %+v, %v", i, results[i], errs[i])
		}
	}
}

func TestCache_Clear(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()

	for _, key := range []string{"history:1:a", "history:1:b", "search:1:a"} {
		if err := cache.Set(ctx, c, key, page{Total: 1}, 0); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	if err := c.Clear(ctx, "history:*"); err != nil {
		t.Fatalf("clear history: %v", err)
	}

	keys, _ := store.Keys(ctx, "*")
	if len(keys) != 1 || keys[0] != "search:1:a" {
		t.Errorf("remaining keys = %v", keys)
	}

	if err := c.Clear(ctx, ""); err != nil {
		t.Fatalf("clear all: %v", err)
	}

	if keys, _ := store.Keys(ctx, "*"); len(keys) != 0 {
		t.Errorf("expected empty cache, got %v", keys)
	}
}
