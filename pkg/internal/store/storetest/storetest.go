// Package storetest 为测试提供基于临时 SQLite 文件的 Store 与内存大对象存储.
package storetest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/storage/db"
	"github.com/yeisme/clipvault/pkg/internal/store"
)

// New 在 t.TempDir() 下打开一个新的 Store，测试结束时关闭连接.
func New(t testing.TB, opts store.Options) *store.Store {
	t.Helper()

	client := OpenDB(t)

	s, err := store.Open(context.Background(), client.DB, opts)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	return s
}

// OpenDB 打开临时 SQLite 数据库.
func OpenDB(t testing.TB) *db.Client {
	t.Helper()

	cfg := &configs.DBConfig{
		Type:     configs.SQLite,
		Database: filepath.Join(t.TempDir(), "clipvault"),
	}

	client, err := db.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return client
}

// Clock 可手动推进的时钟，每次调用 Now 前进 step.
type Clock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

// NewClock 创建从 start 开始、每次前进 step 的时钟.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{t: start, step: step}
}

// Now 返回当前时间并前进一步.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.t
	c.t = c.t.Add(c.step)

	return now
}

// Set 设置当前时间.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = t
}

// Blobs 内存大对象存储.
type Blobs struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
}

// NewBlobs 创建内存大对象存储.
func NewBlobs() *Blobs {
	return &Blobs{data: make(map[string][]byte)}
}

func (b *Blobs) PutBlob(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[key] = append([]byte(nil), data...)
	b.puts++

	return nil
}

func (b *Blobs) GetBlob(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.data[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}

	return append([]byte(nil), data...), nil
}

func (b *Blobs) DeleteBlob(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.data, key)

	return nil
}

// Len 返回当前对象数.
func (b *Blobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.data)
}

// Puts 返回累计写入次数.
func (b *Blobs) Puts() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.puts
}
