// Package action 实现查询动作的命令表：动作名 → Handler.
//
// 每个 Handler 解码 JSON 参数、用 rule 校验后调用 Backend；Backend 是一个接口，
// 生产环境由 service.ClipService 实现，测试中可以替换为桩实现.
package action

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/bytedance/sonic"

	"github.com/yeisme/clipvault/pkg/internal/model"
	"github.com/yeisme/clipvault/pkg/internal/types"
	"github.com/yeisme/clipvault/pkg/rule"
)

var (
	// ErrUnknownAction 命令表中没有该动作.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidParams 参数无法解析或校验失败.
	ErrInvalidParams = errors.New("invalid params")
)

// 动作名.
const (
	GetHistory     = "get_history"
	Search         = "search"
	GetItem        = "get_item"
	GetItemTags    = "get_item_tags"
	ListTags       = "list_tags"
	ItemsByTags    = "items_by_tags"
	CreateTag      = "create_tag"
	AttachTag      = "attach_tag"
	DetachTag      = "detach_tag"
	DeleteTag      = "delete_tag"
	ToggleSecret   = "toggle_secret"
	RenameItem     = "rename_item"
	DeleteItem     = "delete_item"
	RecordPaste    = "record_paste"
	RecentlyPasted = "recently_pasted"
	Stats          = "stats"
)

// Backend 动作依赖的剪贴板操作.
type Backend interface {
	GetHistory(ctx context.Context, p types.GetHistoryParams) (*types.HistoryPage, error)
	Search(ctx context.Context, p types.SearchParams) (*types.SearchResult, error)
	GetItem(ctx context.Context, id uint) (*types.ItemDetail, error)
	ItemTags(ctx context.Context, id uint) ([]model.Tag, error)
	ListTags(ctx context.Context, includeSystem bool) ([]model.Tag, error)
	ItemsByTags(ctx context.Context, tagIDs []uint, mode string) ([]types.HistoryItem, error)
	CreateTag(ctx context.Context, name, color string) (*model.Tag, error)
	AttachTag(ctx context.Context, itemID, tagID uint) error
	DetachTag(ctx context.Context, itemID, tagID uint) error
	DeleteTag(ctx context.Context, tagID uint) (*model.Tag, error)
	ToggleSecret(ctx context.Context, id uint, name string) (*types.HistoryItem, error)
	Rename(ctx context.Context, id uint, name string) (*types.HistoryItem, error)
	DeleteItem(ctx context.Context, id uint) error
	RecordPaste(ctx context.Context, id uint) (*model.PasteEvent, error)
	RecentlyPasted(ctx context.Context, limit int) ([]types.RecentPaste, error)
	Stats(ctx context.Context) (*types.Stats, error)
}

// Handler 处理一个动作，params 为原始 JSON 参数（可以为空）.
type Handler func(ctx context.Context, b Backend, params []byte) (any, error)

// Table 动作命令表.
type Table map[string]Handler

// Dispatch 按名称执行动作.
func (t Table) Dispatch(ctx context.Context, b Backend, name string, params []byte) (any, error) {
	h, ok := t[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}

	return h(ctx, b, params)
}

// Names 返回已注册的动作名（排序）.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Commands 返回默认命令表.
func Commands() Table {
	return Table{
		GetHistory: typed(func(ctx context.Context, b Backend, p types.GetHistoryParams) (any, error) {
			return b.GetHistory(ctx, p)
		}),
		Search: typed(func(ctx context.Context, b Backend, p types.SearchParams) (any, error) {
			return b.Search(ctx, p)
		}),
		GetItem: typed(func(ctx context.Context, b Backend, p types.ItemParams) (any, error) {
			return b.GetItem(ctx, p.ItemID)
		}),
		GetItemTags: typed(func(ctx context.Context, b Backend, p types.ItemParams) (any, error) {
			tags, err := b.ItemTags(ctx, p.ItemID)
			if err != nil {
				return nil, err
			}

			return types.TagsResult{Tags: tags}, nil
		}),
		ListTags: typed(func(ctx context.Context, b Backend, p types.ListTagsParams) (any, error) {
			tags, err := b.ListTags(ctx, p.IncludeSystem)
			if err != nil {
				return nil, err
			}

			return types.TagsResult{Tags: tags}, nil
		}),
		ItemsByTags: typed(func(ctx context.Context, b Backend, p types.ItemsByTagsParams) (any, error) {
			items, err := b.ItemsByTags(ctx, p.TagIDs, p.Mode)
			if err != nil {
				return nil, err
			}

			return types.ItemsResult{Items: items}, nil
		}),
		CreateTag: typed(func(ctx context.Context, b Backend, p types.CreateTagParams) (any, error) {
			return b.CreateTag(ctx, p.Name, p.Color)
		}),
		AttachTag: typed(func(ctx context.Context, b Backend, p types.ItemTagParams) (any, error) {
			return ok(b.AttachTag(ctx, p.ItemID, p.TagID))
		}),
		DetachTag: typed(func(ctx context.Context, b Backend, p types.ItemTagParams) (any, error) {
			return ok(b.DetachTag(ctx, p.ItemID, p.TagID))
		}),
		DeleteTag: typed(func(ctx context.Context, b Backend, p types.TagParams) (any, error) {
			if _, err := b.DeleteTag(ctx, p.TagID); err != nil {
				return nil, err
			}

			return types.DeletedResult{ID: p.TagID, Deleted: true}, nil
		}),
		ToggleSecret: typed(func(ctx context.Context, b Backend, p types.NamedItemParams) (any, error) {
			return b.ToggleSecret(ctx, p.ItemID, p.Name)
		}),
		RenameItem: typed(func(ctx context.Context, b Backend, p types.NamedItemParams) (any, error) {
			return b.Rename(ctx, p.ItemID, p.Name)
		}),
		DeleteItem: typed(func(ctx context.Context, b Backend, p types.ItemParams) (any, error) {
			if err := b.DeleteItem(ctx, p.ItemID); err != nil {
				return nil, err
			}

			return types.DeletedResult{ID: p.ItemID, Deleted: true}, nil
		}),
		RecordPaste: typed(func(ctx context.Context, b Backend, p types.ItemParams) (any, error) {
			return b.RecordPaste(ctx, p.ItemID)
		}),
		RecentlyPasted: typed(func(ctx context.Context, b Backend, p types.RecentlyPastedParams) (any, error) {
			items, err := b.RecentlyPasted(ctx, p.Limit)
			if err != nil {
				return nil, err
			}

			return types.RecentlyPastedResult{Items: items}, nil
		}),
		Stats: typed(func(ctx context.Context, b Backend, _ struct{}) (any, error) {
			return b.Stats(ctx)
		}),
	}
}

// typed 把带类型参数的处理函数包装为 Handler.
func typed[P any](fn func(ctx context.Context, b Backend, p P) (any, error)) Handler {
	return func(ctx context.Context, b Backend, params []byte) (any, error) {
		p, err := Decode[P](params)
		if err != nil {
			return nil, err
		}

		return fn(ctx, b, p)
	}
}

// Decode 解码并校验动作参数，空参数按 {} 处理.
func Decode[P any](params []byte) (P, error) {
	var p P

	if len(params) > 0 {
		if err := sonic.Unmarshal(params, &p); err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
	}

	if err := rule.ValidateStruct(&p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	return p, nil
}

func ok(err error) (any, error) {
	if err != nil {
		return nil, err
	}

	return types.OKResult{OK: true}, nil
}
