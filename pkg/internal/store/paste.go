package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/clipvault/pkg/internal/model"
)

// PastedItem 最近粘贴的条目.
type PastedItem struct {
	Item         model.ClipboardItem
	LastPastedAt time.Time
	PasteCount   int64
}

// RecordPaste 追加一条粘贴记录.
func (s *Store) RecordPaste(ctx context.Context, itemID uint) (*model.PasteEvent, error) {
	ev := model.PasteEvent{ItemID: itemID}

	err := s.write(ctx, func(tx *gorm.DB) error {
		var item model.ClipboardItem
		if err := takeItem(tx, itemID, &item); err != nil {
			return err
		}

		ev.PastedAt = s.now()

		if err := tx.Create(&ev).Error; err != nil {
			return fmt.Errorf("record paste: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ev, nil
}

// RecentlyPasted 按最近一次粘贴时间降序返回条目，已删除的条目被跳过.
func (s *Store) RecentlyPasted(ctx context.Context, limit int) ([]PastedItem, error) {
	if limit <= 0 {
		limit = s.opts.SearchLimit
	}

	db := s.db.WithContext(ctx)

	// 粘贴记录只追加，最大 id 即最近一次粘贴
	var rows []struct {
		ItemID     uint
		LastID     uint
		PasteCount int64
	}

	err := db.Model(&model.PasteEvent{}).
		Select("paste_events.item_id AS item_id, MAX(paste_events.id) AS last_id, COUNT(*) AS paste_count").
		Joins("JOIN clipboard_items ON clipboard_items.id = paste_events.item_id").
		Group("paste_events.item_id").
		Order("last_id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recently pasted: %w", err)
	}

	if len(rows) == 0 {
		return []PastedItem{}, nil
	}

	itemIDs := make([]uint, len(rows))
	lastIDs := make([]uint, len(rows))

	for i, r := range rows {
		itemIDs[i] = r.ItemID
		lastIDs[i] = r.LastID
	}

	var items []model.ClipboardItem
	if err := db.Where("id IN ?", itemIDs).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load pasted items: %w", err)
	}

	var events []model.PasteEvent
	if err := db.Where("id IN ?", lastIDs).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("load paste events: %w", err)
	}

	byID := make(map[uint]model.ClipboardItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	pastedAt := make(map[uint]time.Time, len(events))
	for _, ev := range events {
		pastedAt[ev.ID] = ev.PastedAt
	}

	out := make([]PastedItem, 0, len(rows))

	for _, r := range rows {
		it, ok := byID[r.ItemID]
		if !ok {
			continue
		}

		out = append(out, PastedItem{Item: it, LastPastedAt: pastedAt[r.LastID], PasteCount: r.PasteCount})
	}

	return out, nil
}

// PrunePastes 删除早于 before 的粘贴记录，返回删除条数.
func (s *Store) PrunePastes(ctx context.Context, before time.Time) (int64, error) {
	var n int64

	err := s.write(ctx, func(tx *gorm.DB) error {
		res := tx.Where("pasted_at < ?", before.UTC()).Delete(&model.PasteEvent{})
		if res.Error != nil {
			return fmt.Errorf("prune pastes: %w", res.Error)
		}

		n = res.RowsAffected

		return nil
	})

	return n, err
}

// CountPastes 返回粘贴记录总数.
func (s *Store) CountPastes(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.PasteEvent{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count pastes: %w", err)
	}

	return n, nil
}
