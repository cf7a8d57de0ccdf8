package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/clipvault/pkg/internal/model"
	"github.com/yeisme/clipvault/pkg/internal/types"
	"github.com/yeisme/clipvault/pkg/rule"
)

// palette 未指定颜色时按名称哈希取色.
var palette = []string{
	"#e57373", "#f06292", "#ba68c8", "#9575cd",
	"#7986cb", "#64b5f6", "#4fc3f7", "#4dd0e1",
	"#4db6ac", "#81c784", "#dce775", "#ffb74d",
}

// PaletteColor 返回名称对应的调色板颜色.
func PaletteColor(name string) string {
	return palette[xxhash.Sum64String(name)%uint64(len(palette))]
}

// CreateTag 创建标签，名称去除首尾空白后必填且唯一；颜色为空时自动分配.
func (s *Store) CreateTag(ctx context.Context, name, color string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	color = strings.ToLower(strings.TrimSpace(color))
	if color == "" {
		color = PaletteColor(name)
	} else if err := rule.ValidateVar(color, "len=7,hexcolor"); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColor, color)
	}

	tag := model.Tag{Name: name, Color: color, CreatedAt: s.now()}

	err := s.write(ctx, func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Tag{}).Where("name = ?", name).Count(&n).Error; err != nil {
			return fmt.Errorf("lookup tag: %w", err)
		}

		if n > 0 {
			return fmt.Errorf("tag %q: %w", name, ErrNameConflict)
		}

		if err := tx.Create(&tag).Error; err != nil {
			return fmt.Errorf("create tag: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &tag, nil
}

// EnsureSystemTags 创建缺失的系统标签；同名的普通标签会被提升为系统标签.
func (s *Store) EnsureSystemTags(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	return s.write(ctx, func(tx *gorm.DB) error {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}

			var tag model.Tag

			err := tx.Where("name = ?", name).Take(&tag).Error
			switch {
			case err == nil:
				if !tag.IsSystem {
					if err := tx.Model(&tag).Update("is_system", true).Error; err != nil {
						return fmt.Errorf("promote tag %q: %w", name, err)
					}
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				tag = model.Tag{Name: name, Color: PaletteColor(name), IsSystem: true, CreatedAt: s.now()}
				if err := tx.Create(&tag).Error; err != nil {
					return fmt.Errorf("create system tag %q: %w", name, err)
				}
			default:
				return fmt.Errorf("lookup tag %q: %w", name, err)
			}
		}

		return nil
	})
}

func takeTag(db *gorm.DB, id uint, tag *model.Tag) error {
	err := db.Where("id = ?", id).Take(tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("tag", id)
	}

	if err != nil {
		return fmt.Errorf("get tag %d: %w", id, err)
	}

	return nil
}

// Attach 关联条目与标签，重复关联不报错.
func (s *Store) Attach(ctx context.Context, itemID, tagID uint) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		var (
			item model.ClipboardItem
			tag  model.Tag
		)

		if err := takeItem(tx, itemID, &item); err != nil {
			return err
		}

		if err := takeTag(tx, tagID, &tag); err != nil {
			return err
		}

		link := model.ItemTag{ItemID: itemID, TagID: tagID, CreatedAt: s.now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return fmt.Errorf("attach tag %d to item %d: %w", tagID, itemID, err)
		}

		return nil
	})
}

// Detach 解除关联，关联不存在时什么也不做.
func (s *Store) Detach(ctx context.Context, itemID, tagID uint) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		err := tx.Where("item_id = ? AND tag_id = ?", itemID, tagID).Delete(&model.ItemTag{}).Error
		if err != nil {
			return fmt.Errorf("detach tag %d from item %d: %w", tagID, itemID, err)
		}

		return nil
	})
}

// DeleteTag 删除标签及其全部关联，条目不受影响；系统标签不可删除.
func (s *Store) DeleteTag(ctx context.Context, id uint) (*model.Tag, error) {
	var tag model.Tag

	err := s.write(ctx, func(tx *gorm.DB) error {
		if err := takeTag(tx, id, &tag); err != nil {
			return err
		}

		if tag.IsSystem {
			return fmt.Errorf("tag %q: %w", tag.Name, ErrSystemTag)
		}

		if err := tx.Where("tag_id = ?", id).Delete(&model.ItemTag{}).Error; err != nil {
			return fmt.Errorf("delete tag links: %w", err)
		}

		if err := tx.Delete(&model.Tag{}, id).Error; err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &tag, nil
}

// ListTags 按名称列出标签，includeSystem 为 false 时排除系统标签.
func (s *Store) ListTags(ctx context.Context, includeSystem bool) ([]model.Tag, error) {
	db := s.db.WithContext(ctx).Order("name ASC")
	if !includeSystem {
		db = db.Where("is_system = ?", false)
	}

	var tags []model.Tag
	if err := db.Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	return tags, nil
}

// ItemTags 返回条目的全部标签（包括系统标签）.
func (s *Store) ItemTags(ctx context.Context, itemID uint) ([]model.Tag, error) {
	db := s.db.WithContext(ctx)

	var item model.ClipboardItem
	if err := takeItem(db, itemID, &item); err != nil {
		return nil, err
	}

	var tags []model.Tag

	err := db.Model(&model.Tag{}).
		Joins("JOIN item_tags ON item_tags.tag_id = tags.id").
		Where("item_tags.item_id = ?", itemID).
		Order("tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("item tags: %w", err)
	}

	return tags, nil
}

// ItemsByTags 返回带有任一（any）或全部（all）给定标签的条目，按 created_at 降序.
func (s *Store) ItemsByTags(ctx context.Context, tagIDs []uint, mode string) ([]model.ClipboardItem, error) {
	if len(tagIDs) == 0 {
		return []model.ClipboardItem{}, nil
	}

	if mode != types.TagModeAll {
		mode = types.TagModeAny
	}

	db := s.db.WithContext(ctx).Model(&model.ClipboardItem{})
	db = db.Where("clipboard_items.id IN (?)", taggedItems(db, tagIDs, mode))

	var items []model.ClipboardItem
	if err := orderByCreated(db, "desc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("items by tags: %w", err)
	}

	return items, nil
}

// CountTags 返回标签总数.
func (s *Store) CountTags(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Tag{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}

	return n, nil
}
