package types

import (
	"time"

	"github.com/yeisme/clipvault/pkg/internal/model"
)

// GetHistoryParams get_history 参数，page 从 1 开始.
type GetHistoryParams struct {
	Page      int      `json:"page"       rule:"min=0"`
	PageSize  int      `json:"page_size"  rule:"min=0"`
	SortOrder string   `json:"sort_order" rule:"omitempty,oneof=asc desc"`
	Filters   *Filters `json:"filters,omitempty"`
}

// HistoryPage 分页历史.
type HistoryPage struct {
	Items    []HistoryItem `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// SearchParams search 参数.
type SearchParams struct {
	Query   string   `json:"query"`
	Filters *Filters `json:"filters,omitempty"`
	Limit   int      `json:"limit,omitempty" rule:"min=0"`
}

// SearchResult 搜索结果.
type SearchResult struct {
	Items []HistoryItem `json:"items"`
}

// ItemParams 仅包含条目 ID 的参数.
type ItemParams struct {
	ItemID uint `json:"item_id" rule:"required"`
}

// TagParams 仅包含标签 ID 的参数.
type TagParams struct {
	TagID uint `json:"tag_id" rule:"required"`
}

// ItemTagParams attach_tag 与 detach_tag 参数.
type ItemTagParams struct {
	ItemID uint `json:"item_id" rule:"required"`
	TagID  uint `json:"tag_id"  rule:"required"`
}

// CreateTagParams create_tag 参数，颜色为 #rrggbb.
type CreateTagParams struct {
	Name  string `json:"name"            rule:"max=64"`
	Color string `json:"color,omitempty" rule:"omitempty,len=7,hexcolor"`
}

// NamedItemParams toggle_secret 与 rename_item 参数.
type NamedItemParams struct {
	ItemID uint   `json:"item_id" rule:"required"`
	Name   string `json:"name"    rule:"max=255"`
}

// ListTagsParams list_tags 参数.
type ListTagsParams struct {
	IncludeSystem bool `json:"include_system,omitempty"`
}

// ItemsByTagsParams items_by_tags 参数.
type ItemsByTagsParams struct {
	TagIDs []uint `json:"tag_ids"        rule:"required,min=1"`
	Mode   string `json:"mode,omitempty" rule:"omitempty,oneof=any all"`
}

// RecentlyPastedParams recently_pasted 参数.
type RecentlyPastedParams struct {
	Limit int `json:"limit,omitempty" rule:"min=0,max=500"`
}

// ItemDetail get_item 响应，包含完整内容（包括机密条目与对象存储中的内容）与标签.
type ItemDetail struct {
	model.ClipboardItem
	Tags []model.Tag `json:"tags"`
}

// ItemsResult 条目列表.
type ItemsResult struct {
	Items []HistoryItem `json:"items"`
}

// TagsResult 标签列表.
type TagsResult struct {
	Tags []model.Tag `json:"tags"`
}

// DeletedResult 删除结果.
type DeletedResult struct {
	ID      uint `json:"id"`
	Deleted bool `json:"deleted"`
}

// OKResult 无返回数据的操作结果.
type OKResult struct {
	OK bool `json:"ok"`
}

// RecentPaste 最近粘贴的条目.
type RecentPaste struct {
	Item         HistoryItem `json:"item"`
	LastPastedAt time.Time   `json:"last_pasted_at"`
	PasteCount   int64       `json:"paste_count"`
}

// RecentlyPastedResult recently_pasted 响应.
type RecentlyPastedResult struct {
	Items []RecentPaste `json:"items"`
}

// Stats stats 响应.
type Stats struct {
	Items       int64            `json:"items"`
	ByKind      map[string]int64 `json:"by_kind"`
	Tags        int64            `json:"tags"`
	PasteEvents int64            `json:"paste_events"`
	Subscribers int              `json:"subscribers"`
	Generation  uint64           `json:"generation"`
	MaxItems    int              `json:"max_items"`
}
