package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/clipvault/pkg/internal/model"
	"github.com/yeisme/clipvault/pkg/internal/types"
)

// likeEscape 是 LIKE 模式中的转义字符，三种方言都接受单字符 ESCAPE.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// entryFor 计算条目的索引行：名称总是可搜索，机密条目与图片不索引内容.
func entryFor(item *model.ClipboardItem) model.SearchEntry {
	e := model.SearchEntry{
		ItemID:   item.ID,
		NameText: strings.ToLower(item.DisplayName),
	}

	if !item.IsSecret && !item.Kind.IsImage() {
		e.ContentText = strings.ToLower(item.Content)
	}

	return e
}

func upsertEntry(tx *gorm.DB, item *model.ClipboardItem) error {
	e := entryFor(item)

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name_text", "content_text"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("index item %d: %w", item.ID, err)
	}

	return nil
}

// SearchPage 组合全文匹配与过滤条件的分页查询.
//
// 查询按空白切分，每个词都必须在名称或内容中出现（不区分大小写的子串匹配）；
// 空查询只应用过滤条件.
func (s *Store) SearchPage(ctx context.Context, query string, f *types.Filters, offset, limit int, order string) ([]model.ClipboardItem, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.ClipboardItem{})

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) > 0 {
		db = db.Joins("JOIN search_entries ON search_entries.item_id = clipboard_items.id")
		for _, tok := range tokens {
			p := "%" + likeReplacer.Replace(tok) + "%"
			db = db.Where(
				"(search_entries.name_text LIKE ? ESCAPE '"+likeEscape+"' OR search_entries.content_text LIKE ? ESCAPE '"+likeEscape+"')",
				p, p)
		}
	}

	db = applyFilters(db, f).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count search: %w", err)
	}

	var items []model.ClipboardItem
	if err := orderByCreated(db, order).Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}

	return items, total, nil
}

// Search 返回最多 limit 条匹配项，按 created_at 降序；limit<=0 时使用配置的搜索上限.
func (s *Store) Search(ctx context.Context, query string, f *types.Filters, limit int) ([]model.ClipboardItem, error) {
	if limit <= 0 || limit > s.opts.SearchLimit {
		limit = s.opts.SearchLimit
	}

	items, _, err := s.SearchPage(ctx, query, f, 0, limit, "desc")

	return items, err
}

// applyFilters 追加类型、时间范围与标签过滤，各条件为且关系.
func applyFilters(db *gorm.DB, f *types.Filters) *gorm.DB {
	if f.IsZero() {
		return db
	}

	if len(f.Kinds) > 0 {
		db = db.Where("clipboard_items.kind IN ?", f.Kinds)
	}

	if f.From != nil {
		db = db.Where("clipboard_items.created_at >= ?", f.From.UTC())
	}

	if f.To != nil {
		db = db.Where("clipboard_items.created_at <= ?", f.To.UTC())
	}

	if len(f.TagIDs) > 0 {
		db = db.Where("clipboard_items.id IN (?)", taggedItems(db, f.TagIDs, f.Mode()))
	}

	return db
}

// taggedItems 返回带有任一（any）或全部（all）标签的条目 id 子查询.
func taggedItems(db *gorm.DB, tagIDs []uint, mode string) *gorm.DB {
	ids := uniqueIDs(tagIDs)
	sub := db.Session(&gorm.Session{NewDB: true}).Model(&model.ItemTag{}).
		Select("item_id").Where("tag_id IN ?", ids)

	if mode == types.TagModeAll {
		sub = sub.Group("item_id").Having("COUNT(DISTINCT tag_id) = ?", len(ids))
	}

	return sub
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

// IndexReport 搜索索引校验报告.
type IndexReport struct {
	Items   int64 `json:"items"`
	Entries int64 `json:"entries"`
	Missing int   `json:"missing"` // 条目存在但没有索引行
	Orphans int   `json:"orphans"` // 索引行指向不存在的条目
	Stale   int   `json:"stale"`   // 索引文本与条目不一致
}

// OK 索引与条目表完全一致.
func (r IndexReport) OK() bool {
	return r.Missing == 0 && r.Orphans == 0 && r.Stale == 0
}

const indexBatch = 500

// VerifyIndex 对比 search_entries 与 clipboard_items.
func (s *Store) VerifyIndex(ctx context.Context) (IndexReport, error) {
	var report IndexReport

	db := s.db.WithContext(ctx)

	entries := make(map[uint]model.SearchEntry)

	var batch []model.SearchEntry

	err := db.Model(&model.SearchEntry{}).FindInBatches(&batch, indexBatch, func(_ *gorm.DB, _ int) error {
		for _, e := range batch {
			entries[e.ItemID] = e
		}

		return nil
	}).Error
	if err != nil {
		return report, fmt.Errorf("load search entries: %w", err)
	}

	report.Entries = int64(len(entries))

	var items []model.ClipboardItem

	err = db.Model(&model.ClipboardItem{}).FindInBatches(&items, indexBatch, func(_ *gorm.DB, _ int) error {
		for i := range items {
			report.Items++

			got, ok := entries[items[i].ID]
			if !ok {
				report.Missing++
				continue
			}

			delete(entries, items[i].ID)

			want := entryFor(&items[i])
			if got.NameText != want.NameText || got.ContentText != want.ContentText {
				report.Stale++
			}
		}

		return nil
	}).Error
	if err != nil {
		return report, fmt.Errorf("load items: %w", err)
	}

	report.Orphans = len(entries)

	return report, nil
}

// RebuildIndex 在一个事务内从条目表重新生成全部索引行.
func (s *Store) RebuildIndex(ctx context.Context) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.SearchEntry{}).Error; err != nil {
			return fmt.Errorf("clear search entries: %w", err)
		}

		var items []model.ClipboardItem

		return tx.Model(&model.ClipboardItem{}).FindInBatches(&items, indexBatch, func(_ *gorm.DB, _ int) error {
			if len(items) == 0 {
				return nil
			}

			entries := make([]model.SearchEntry, len(items))
			for i := range items {
				entries[i] = entryFor(&items[i])
			}

			if err := tx.Create(&entries).Error; err != nil {
				return fmt.Errorf("insert search entries: %w", err)
			}

			return nil
		}).Error
	})
}

// HealIndex 校验索引，不一致时重建并再次校验；重建后仍不一致返回 ErrIndexCorrupt.
func (s *Store) HealIndex(ctx context.Context) (IndexReport, error) {
	report, err := s.VerifyIndex(ctx)
	if err != nil {
		return report, fmt.Errorf("verify index: %w", err)
	}

	if report.OK() {
		return report, nil
	}

	s.log.Warn().
		Int64("items", report.Items).
		Int("missing", report.Missing).
		Int("orphans", report.Orphans).
		Int("stale", report.Stale).
		Msg("search index inconsistent, rebuilding")

	if err := s.RebuildIndex(ctx); err != nil {
		return report, fmt.Errorf("%w: rebuild failed: %v", ErrIndexCorrupt, err)
	}

	after, err := s.VerifyIndex(ctx)
	if err != nil {
		return after, fmt.Errorf("verify index: %w", err)
	}

	if !after.OK() {
		return after, ErrIndexCorrupt
	}

	s.log.Info().Int64("entries", after.Entries).Msg("search index rebuilt")

	return report, nil
}
