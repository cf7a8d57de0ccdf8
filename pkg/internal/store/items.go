package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/clipvault/pkg/internal/model"
	"github.com/yeisme/clipvault/pkg/internal/types"
)

// deleteBatch 单条 IN 语句最多携带的 id 数.
const deleteBatch = 500

// PutResult 写入结果.
type PutResult struct {
	Item    *model.ClipboardItem
	WasNew  bool
	Trimmed []model.ClipboardItem
}

// Put 写入一个事件：哈希 → 按哈希查找 → 插入或 touch → 保留裁剪 → 索引更新，全部在一个事务内完成.
func (s *Store) Put(ctx context.Context, ev types.Event) (*PutResult, error) {
	kind := ev.Kind()
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}

	switch model.FormatType(ev.FormatType) {
	case model.FormatNone, model.FormatHTML, model.FormatRTF:
	default:
		return nil, fmt.Errorf("%w: unknown format_type %q", ErrInvalidEvent, ev.FormatType)
	}

	hash := ContentHash(kind, ev.Content, s.opts.HashSampleBytes)

	blobKey, err := s.offload(ctx, kind, hash, ev.Content)
	if err != nil {
		return nil, err
	}

	var res PutResult

	err = s.write(ctx, func(tx *gorm.DB) error {
		var existing model.ClipboardItem

		err := tx.Where("content_hash = ?", hash).Take(&existing).Error
		if err == nil {
			touched := s.now()
			if floor := existing.LastTouchedAt.Add(time.Microsecond); touched.Before(floor) {
				touched = floor
			}

			if err := tx.Model(&existing).Update("last_touched_at", touched).Error; err != nil {
				return fmt.Errorf("touch item %d: %w", existing.ID, err)
			}

			existing.LastTouchedAt = touched
			res.Item = &existing

			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup hash: %w", err)
		}

		now := s.now()
		item := model.ClipboardItem{
			ContentHash:      hash,
			Kind:             kind,
			Content:          ev.Content,
			Size:             int64(len(ev.Content)),
			FormattedContent: ev.FormattedContent,
			FormatType:       model.FormatType(ev.FormatType),
			CreatedAt:        now,
			LastTouchedAt:    now,
		}

		if blobKey != "" {
			item.Content = ""
			item.BlobKey = blobKey
		}

		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("insert item: %w", err)
		}

		if err := upsertEntry(tx, &item); err != nil {
			return err
		}

		res.Item = &item
		res.WasNew = true

		res.Trimmed, err = s.trim(tx)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.dropBlobs(ctx, res.Trimmed)

	return &res, nil
}

// offload 把超过阈值的图片内容写入大对象存储，返回对象键；已存在同哈希条目时不上传.
func (s *Store) offload(ctx context.Context, kind model.ItemKind, hash, content string) (string, error) {
	if s.opts.Blobs == nil || !kind.IsImage() || s.opts.BlobThreshold <= 0 || len(content) <= s.opts.BlobThreshold {
		return "", nil
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&model.ClipboardItem{}).Where("content_hash = ?", hash).Count(&n).Error; err != nil {
		return "", fmt.Errorf("lookup hash: %w", err)
	}

	if n > 0 {
		return "", nil
	}

	if err := s.opts.Blobs.PutBlob(ctx, hash, []byte(content), "application/json"); err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}

	return hash, nil
}

// trim 在事务内把条目数裁剪到上限，按 created_at 升序（id 决胜）删除.
func (s *Store) trim(tx *gorm.DB) ([]model.ClipboardItem, error) {
	limit := s.MaxItems()
	if limit <= 0 {
		return nil, nil
	}

	var count int64
	if err := tx.Model(&model.ClipboardItem{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}

	excess := count - int64(limit)
	if excess <= 0 {
		return nil, nil
	}

	var victims []model.ClipboardItem
	if err := tx.Order("created_at ASC").Order("id ASC").Limit(int(excess)).Find(&victims).Error; err != nil {
		return nil, fmt.Errorf("select oldest: %w", err)
	}

	if err := deleteItems(tx, itemIDs(victims)); err != nil {
		return nil, err
	}

	return victims, nil
}

// deleteItems 删除条目并级联删除其标签关联与索引行.
func deleteItems(tx *gorm.DB, ids []uint) error {
	for start := 0; start < len(ids); start += deleteBatch {
		chunk := ids[start:min(start+deleteBatch, len(ids))]

		if err := tx.Where("item_id IN ?", chunk).Delete(&model.ItemTag{}).Error; err != nil {
			return fmt.Errorf("delete item tags: %w", err)
		}

		if err := tx.Where("item_id IN ?", chunk).Delete(&model.SearchEntry{}).Error; err != nil {
			return fmt.Errorf("delete search entries: %w", err)
		}

		if err := tx.Where("id IN ?", chunk).Delete(&model.ClipboardItem{}).Error; err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
	}

	return nil
}

func itemIDs(items []model.ClipboardItem) []uint {
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}

	return ids
}

// ApplyRetention 将条目数裁剪到当前上限，返回被删除的条目.
func (s *Store) ApplyRetention(ctx context.Context) ([]model.ClipboardItem, error) {
	limit := s.MaxItems()
	if limit <= 0 {
		return nil, nil
	}

	if n, err := s.Count(ctx); err != nil || n <= int64(limit) {
		return nil, err
	}

	var trimmed []model.ClipboardItem

	err := s.write(ctx, func(tx *gorm.DB) error {
		var err error

		trimmed, err = s.trim(tx)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.dropBlobs(ctx, trimmed)

	return trimmed, nil
}

// ToggleSecret 切换机密状态并记录名称，名称必填；机密条目的内容从搜索索引中移除.
func (s *Store) ToggleSecret(ctx context.Context, id uint, name string) (*model.ClipboardItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	var item model.ClipboardItem

	err := s.write(ctx, func(tx *gorm.DB) error {
		if err := takeItem(tx, id, &item); err != nil {
			return err
		}

		item.IsSecret = !item.IsSecret
		item.DisplayName = name

		if err := tx.Model(&item).Updates(map[string]any{
			"is_secret":    item.IsSecret,
			"display_name": item.DisplayName,
		}).Error; err != nil {
			return fmt.Errorf("update item %d: %w", id, err)
		}

		return upsertEntry(tx, &item)
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// Rename 设置显示名称，机密条目不允许清空名称.
func (s *Store) Rename(ctx context.Context, id uint, name string) (*model.ClipboardItem, error) {
	name = strings.TrimSpace(name)

	var item model.ClipboardItem

	err := s.write(ctx, func(tx *gorm.DB) error {
		if err := takeItem(tx, id, &item); err != nil {
			return err
		}

		if item.IsSecret && name == "" {
			return ErrNameRequired
		}

		item.DisplayName = name

		if err := tx.Model(&item).Update("display_name", name).Error; err != nil {
			return fmt.Errorf("rename item %d: %w", id, err)
		}

		return upsertEntry(tx, &item)
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// Delete 删除条目，级联删除标签关联与索引行.
func (s *Store) Delete(ctx context.Context, id uint) (*model.ClipboardItem, error) {
	var item model.ClipboardItem

	err := s.write(ctx, func(tx *gorm.DB) error {
		if err := takeItem(tx, id, &item); err != nil {
			return err
		}

		return deleteItems(tx, []uint{id})
	})
	if err != nil {
		return nil, err
	}

	s.dropBlobs(ctx, []model.ClipboardItem{item})

	return &item, nil
}

func takeItem(db *gorm.DB, id uint, item *model.ClipboardItem) error {
	err := db.Where("id = ?", id).Take(item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("item", id)
	}

	if err != nil {
		return fmt.Errorf("get item %d: %w", id, err)
	}

	return nil
}

// Get 按 id 获取条目.
func (s *Store) Get(ctx context.Context, id uint) (*model.ClipboardItem, error) {
	var item model.ClipboardItem
	if err := takeItem(s.db.WithContext(ctx), id, &item); err != nil {
		return nil, err
	}

	return &item, nil
}

// GetPage 按 created_at 排序分页（order 为 asc 或 desc，默认 desc），id 决胜.
func (s *Store) GetPage(ctx context.Context, offset, limit int, order string) ([]model.ClipboardItem, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.ClipboardItem{}).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	var items []model.ClipboardItem
	if err := orderByCreated(db, order).Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("get page: %w", err)
	}

	return items, total, nil
}

func orderByCreated(db *gorm.DB, order string) *gorm.DB {
	if strings.EqualFold(order, "asc") {
		return db.Order("clipboard_items.created_at ASC").Order("clipboard_items.id ASC")
	}

	return db.Order("clipboard_items.created_at DESC").Order("clipboard_items.id DESC")
}

// Count 返回条目总数.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.ClipboardItem{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}

	return n, nil
}

// CountByKind 按类型统计条目数.
func (s *Store) CountByKind(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Kind  string
		Total int64
	}

	err := s.db.WithContext(ctx).Model(&model.ClipboardItem{}).
		Select("kind, COUNT(*) AS total").Group("kind").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by kind: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Kind] = r.Total
	}

	return out, nil
}

// LoadContent 返回条目的原始内容，内容在大对象存储时从中读取.
func (s *Store) LoadContent(ctx context.Context, item *model.ClipboardItem) (string, error) {
	if item.BlobKey == "" {
		return item.Content, nil
	}

	if s.opts.Blobs == nil {
		return "", fmt.Errorf("item %d references blob %s but no blob store is configured", item.ID, item.BlobKey)
	}

	data, err := s.opts.Blobs.GetBlob(ctx, item.BlobKey)
	if err != nil {
		return "", fmt.Errorf("load blob %s: %w", item.BlobKey, err)
	}

	return string(data), nil
}
