// Package store 实现剪贴板内容存储：按内容哈希去重、保留上限裁剪、标签索引与搜索索引.
//
// 所有写操作经由 Store.write 进入同一个写入临界区（互斥锁 + 单个数据库事务），
// 读操作不加锁，只会看到事务提交前或提交后的状态.
package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/model"
	clog "github.com/yeisme/clipvault/pkg/log"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNameRequired = errors.New("name required")
	ErrNameConflict = errors.New("name conflict")
	ErrSystemTag    = errors.New("system tag cannot be modified")
	ErrInvalidEvent = errors.New("invalid event")
	ErrInvalidColor = errors.New("invalid color")
	ErrIndexCorrupt = errors.New("search index corrupt")
)

// BlobStore 大对象存储，键为内容哈希.
type BlobStore interface {
	PutBlob(ctx context.Context, key string, data []byte, contentType string) error
	GetBlob(ctx context.Context, key string) ([]byte, error)
	DeleteBlob(ctx context.Context, key string) error
}

// Options 存储选项.
type Options struct {
	MaxItems        int
	HashSampleBytes int
	BlobThreshold   int
	SearchLimit     int
	VerifyOnStart   bool
	SystemTags      []string

	// Blobs 为 nil 时所有内容都存放在数据库
	Blobs BlobStore
	// Now 默认 time.Now，测试可注入
	Now func() time.Time
}

// OptionsFromConfig 由配置生成存储选项.
func OptionsFromConfig(cfg *configs.StoreConfig) Options {
	return Options{
		MaxItems:        cfg.MaxItems,
		HashSampleBytes: cfg.HashSampleBytes,
		BlobThreshold:   cfg.BlobThreshold,
		SearchLimit:     cfg.SearchLimit,
		VerifyOnStart:   cfg.VerifyOnStart,
		SystemTags:      cfg.SystemTags,
	}
}

// Store 剪贴板内容存储.
type Store struct {
	db   *gorm.DB
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex // 写入临界区
	epoch    string
	gen      atomic.Uint64
	maxItems atomic.Int64
}

// Open 迁移表结构、写入系统标签，并在启动时校验搜索索引，不一致时从条目表重建.
func Open(ctx context.Context, db *gorm.DB, opts Options) (*Store, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.HashSampleBytes <= 0 {
		opts.HashSampleBytes = configs.DefaultStoreHashSampleBytes
	}

	if opts.SearchLimit <= 0 {
		opts.SearchLimit = configs.DefaultStoreSearchLimit
	}

	s := &Store{
		db:    db,
		opts:  opts,
		log:   clog.Component("store"),
		epoch: ulid.MustNew(ulid.Now(), rand.Reader).String(),
	}
	s.maxItems.Store(int64(opts.MaxItems))

	if err := db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if err := s.EnsureSystemTags(ctx, opts.SystemTags); err != nil {
		return nil, fmt.Errorf("ensure system tags: %w", err)
	}

	if opts.VerifyOnStart {
		if _, err := s.HealIndex(ctx); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// DB 返回底层数据库连接，仅供只读查询.
func (s *Store) DB() *gorm.DB { return s.db }

// Epoch 返回本次 Open 生成的 ULID，写入代数只在同一 Epoch 内可比较.
func (s *Store) Epoch() string { return s.epoch }

// Generation 返回写入代数，每次成功提交的写操作加一.
func (s *Store) Generation() uint64 { return s.gen.Load() }

// MaxItems 返回当前保留上限.
func (s *Store) MaxItems() int { return int(s.maxItems.Load()) }

// SetMaxItems 调整保留上限，新上限在下一次写入或保留任务时生效.
func (s *Store) SetMaxItems(n int) {
	if n < 0 {
		n = 0
	}

	s.maxItems.Store(int64(n))
}

// write 是唯一的写入边界：持有写锁，在一个事务内执行 fn，提交成功后递增写入代数.
func (s *Store) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithContext(ctx).Transaction(fn); err != nil {
		return err
	}

	s.gen.Add(1)

	return nil
}

// now 返回微秒精度的 UTC 时间，保证不同驱动下的存储与比较一致.
func (s *Store) now() time.Time {
	return s.opts.Now().UTC().Truncate(time.Microsecond)
}

func notFound(what string, id uint) error {
	return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
}

// dropBlobs 在事务提交后删除被移除条目的大对象，失败只记录日志.
func (s *Store) dropBlobs(ctx context.Context, items []model.ClipboardItem) {
	if s.opts.Blobs == nil {
		return
	}

	for _, it := range items {
		if it.BlobKey == "" {
			continue
		}

		if err := s.opts.Blobs.DeleteBlob(ctx, it.BlobKey); err != nil {
			s.log.Warn().Err(err).Uint("item_id", it.ID).Str("blob_key", it.BlobKey).Msg("delete blob failed")
		}
	}
}
