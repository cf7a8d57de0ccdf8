// Package service 组合存储、写入网关、广播中心与查询缓存，向查询动作与 HTTP 层提供剪贴板操作.
//
// 所有修改都经由 ingest.Gateway.Exec 进入唯一的写入队列，写入成功后由网关发布通知；
// 读操作直接查询存储，history 与 search 的结果按存储写入代数缓存.
package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/yeisme/clipvault/pkg/cache"
	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/hub"
	"github.com/yeisme/clipvault/pkg/internal/ingest"
	"github.com/yeisme/clipvault/pkg/internal/model"
	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/internal/types"
	clog "github.com/yeisme/clipvault/pkg/log"
)

// Options 服务选项.
type Options struct {
	PageSize    int
	MaxPageSize int
	// CacheTTL 为 0 或 Cache 为 nil 时不缓存查询结果
	CacheTTL time.Duration
}

// OptionsFromConfig 由配置生成服务选项.
func OptionsFromConfig(cfg *configs.AppConfig) Options {
	opts := Options{
		PageSize:    cfg.Store.PageSize,
		MaxPageSize: cfg.Store.MaxPageSize,
	}
	if cfg.Cache.Enabled {
		opts.CacheTTL = cfg.Cache.TTL
	}

	return opts
}

// ClipService 剪贴板查询与修改操作.
type ClipService struct {
	store *store.Store
	gw    *ingest.Gateway
	hub   *hub.Hub
	cache *cache.Cache
	opts  Options
	log   zerolog.Logger
}

// NewClipService 创建服务，c 可以为 nil.
func NewClipService(gw *ingest.Gateway, h *hub.Hub, c *cache.Cache, opts Options) *ClipService {
	if opts.PageSize <= 0 {
		opts.PageSize = configs.DefaultStorePageSize
	}

	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = configs.DefaultStoreMaxPageSize
	}

	return &ClipService{
		store: gw.Store(),
		gw:    gw,
		hub:   h,
		cache: c,
		opts:  opts,
		log:   clog.Component("service"),
	}
}

// GetHistory 分页返回历史；带过滤条件时走搜索引擎（空查询）.
func (s *ClipService) GetHistory(ctx context.Context, p types.GetHistoryParams) (*types.HistoryPage, error) {
	page, size := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}

	if size <= 0 {
		size = s.opts.PageSize
	}

	size = min(size, s.opts.MaxPageSize)
	p.Page, p.PageSize = page, size

	return cached(ctx, s, "history", p, func() (*types.HistoryPage, error) {
		offset := (page - 1) * size

		var (
			items []model.ClipboardItem
			total int64
			err   error
		)

		if p.Filters.IsZero() {
			items, total, err = s.store.GetPage(ctx, offset, size, p.SortOrder)
		} else {
			items, total, err = s.store.SearchPage(ctx, "", p.Filters, offset, size, p.SortOrder)
		}

		if err != nil {
			return nil, err
		}

		return &types.HistoryPage{
			Items:    types.NewHistoryItems(items),
			Total:    total,
			Page:     page,
			PageSize: size,
		}, nil
	})
}

// Search 在名称与内容中搜索.
func (s *ClipService) Search(ctx context.Context, p types.SearchParams) (*types.SearchResult, error) {
	return cached(ctx, s, "search", p, func() (*types.SearchResult, error) {
		items, err := s.store.Search(ctx, p.Query, p.Filters, p.Limit)
		if err != nil {
			return nil, err
		}

		return &types.SearchResult{Items: types.NewHistoryItems(items)}, nil
	})
}

// GetItem 返回完整条目（包括机密条目内容与对象存储中的内容）及其标签.
func (s *ClipService) GetItem(ctx context.Context, id uint) (*types.ItemDetail, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	content, err := s.store.LoadContent(ctx, item)
	if err != nil {
		return nil, err
	}

	item.Content = content

	tags, err := s.store.ItemTags(ctx, id)
	if err != nil {
		return nil, err
	}

	return &types.ItemDetail{ClipboardItem: *item, Tags: tags}, nil
}

// ItemTags 返回条目的标签.
func (s *ClipService) ItemTags(ctx context.Context, id uint) ([]model.Tag, error) {
	return s.store.ItemTags(ctx, id)
}

// ListTags 列出标签.
func (s *ClipService) ListTags(ctx context.Context, includeSystem bool) ([]model.Tag, error) {
	return s.store.ListTags(ctx, includeSystem)
}

// ItemsByTags 按标签筛选条目.
func (s *ClipService) ItemsByTags(ctx context.Context, tagIDs []uint, mode string) ([]types.HistoryItem, error) {
	items, err := s.store.ItemsByTags(ctx, tagIDs, mode)
	if err != nil {
		return nil, err
	}

	return types.NewHistoryItems(items), nil
}

// CreateTag 创建标签.
func (s *ClipService) CreateTag(ctx context.Context, name, color string) (*model.Tag, error) {
	var tag *model.Tag

	err := s.gw.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		t, err := s.store.CreateTag(ctx, name, color)
		if err != nil {
			return nil, err
		}

		tag = t

		return []hub.Notification{types.TagsEnvelope(t.ID, 0, types.TagOpCreated)}, nil
	})
	if err != nil {
		return nil, err
	}

	return tag, nil
}

// AttachTag 给条目打标签.
func (s *ClipService) AttachTag(ctx context.Context, itemID, tagID uint) error {
	return s.gw.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		if err := s.store.Attach(ctx, itemID, tagID); err != nil {
			return nil, err
		}

		return []hub.Notification{types.TagsEnvelope(tagID, itemID, types.TagOpAttached)}, nil
	})
}

// DetachTag 移除条目的标签.
func (s *ClipService) DetachTag(ctx context.Context, itemID, tagID uint) error {
	return s.gw.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		if err := s.store.Detach(ctx, itemID, tagID); err != nil {
			return nil, err
		}

		return []hub.Notification{types.TagsEnvelope(tagID, itemID, types.TagOpDetached)}, nil
	})
}

// DeleteTag 删除标签.
func (s *ClipService) DeleteTag(ctx context.Context, tagID uint) (*model.Tag, error) {
	var tag *model.Tag

	err := s.gw.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		t, err := s.store.DeleteTag(ctx, tagID)
		if err != nil {
			return nil, err
		}

		tag = t

		return []hub.Notification{types.TagsEnvelope(tagID, 0, types.TagOpDeleted)}, nil
	})
	if err != nil {
		return nil, err
	}

	return tag, nil
}

// ToggleSecret 切换条目机密状态.
func (s *ClipService) ToggleSecret(ctx context.Context, id uint, name string) (*types.HistoryItem, error) {
	return s.updateItem(ctx, func(ctx context.Context) (*model.ClipboardItem, error) {
		return s.store.ToggleSecret(ctx, id, name)
	})
}

// Rename 设置条目显示名称.
func (s *ClipService) Rename(ctx context.Context, id uint, name string) (*types.HistoryItem, error) {
	return s.updateItem(ctx, func(ctx context.Context) (*model.ClipboardItem, error) {
		return s.store.Rename(ctx, id, name)
	})
}

func (s *ClipService) updateItem(ctx context.Context, fn func(context.Context) (*model.ClipboardItem, error)) (*types.HistoryItem, error) {
	var item *model.ClipboardItem

	err := s.gw.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		it, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		item = it

		return []hub.Notification{types.ItemEnvelope(types.EventItemUpdated, it)}, nil
	})
	if err != nil {
		return nil, err
	}

	return types.NewHistoryItem(item), nil
}

// DeleteItem 删除条目.
func (s *ClipService) DeleteItem(ctx context.Context, id uint) error {
	return s.gw.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		if _, err := s.store.Delete(ctx, id); err != nil {
			return nil, err
		}

		return []hub.Notification{types.DeletedEnvelope(id)}, nil
	})
}

// RecordPaste 记录一次粘贴.
func (s *ClipService) RecordPaste(ctx context.Context, id uint) (*model.PasteEvent, error) {
	var ev *model.PasteEvent

	err := s.gw.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		e, err := s.store.RecordPaste(ctx, id)
		ev = e

		return nil, err
	})
	if err != nil {
		return nil, err
	}

	return ev, nil
}

// RecentlyPasted 返回最近粘贴的条目.
func (s *ClipService) RecentlyPasted(ctx context.Context, limit int) ([]types.RecentPaste, error) {
	pasted, err := s.store.RecentlyPasted(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]types.RecentPaste, 0, len(pasted))
	for i := range pasted {
		out = append(out, types.RecentPaste{
			Item:         *types.NewHistoryItem(&pasted[i].Item),
			LastPastedAt: pasted[i].LastPastedAt,
			PasteCount:   pasted[i].PasteCount,
		})
	}

	return out, nil
}

// Stats 汇总存储与广播状态.
func (s *ClipService) Stats(ctx context.Context) (*types.Stats, error) {
	byKind, err := s.store.CountByKind(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range byKind {
		total += n
	}

	tags, err := s.store.CountTags(ctx)
	if err != nil {
		return nil, err
	}

	pastes, err := s.store.CountPastes(ctx)
	if err != nil {
		return nil, err
	}

	st := &types.Stats{
		Items:       total,
		ByKind:      byKind,
		Tags:        tags,
		PasteEvents: pastes,
		Generation:  s.store.Generation(),
		MaxItems:    s.store.MaxItems(),
	}
	if s.hub != nil {
		st.Subscribers = s.hub.Len()
	}

	return st, nil
}

// cached 以 <op>:<存储 Epoch>:<写入代数>:<参数哈希> 为键缓存查询结果.
// 任何写入都会使旧键失效，进程重启后 Epoch 改变，持久化 KV 里上一进程的键不会再命中.
func cached[T any](ctx context.Context, s *ClipService, op string, params any, load func() (T, error)) (T, error) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return load()
	}

	raw, err := sonic.Marshal(params)
	if err != nil {
		s.log.Debug().Err(err).Str("op", op).Msg("uncacheable query params")
		return load()
	}

	key := op + ":" + s.store.Epoch() + ":" + strconv.FormatUint(s.store.Generation(), 10) + ":" + strconv.FormatUint(xxhash.Sum64(raw), 16)

	v, err := cache.GetOrSet(ctx, s.cache, key, load, s.opts.CacheTTL)
	if err != nil {
		return v, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}
