package model

import (
	"time"
)

// ItemKind 剪贴板条目类型.
type ItemKind string

const (
	KindText            ItemKind = "text"
	KindFile            ItemKind = "file"
	KindImageScreenshot ItemKind = "image/screenshot"
	KindImageWeb        ItemKind = "image/web"
	KindImageGeneric    ItemKind = "image/generic"
)

// Kinds 返回全部合法的条目类型.
func Kinds() []ItemKind {
	return []ItemKind{KindText, KindFile, KindImageScreenshot, KindImageWeb, KindImageGeneric}
}

// Valid 判断类型是否合法.
func (k ItemKind) Valid() bool {
	switch k {
	case KindText, KindFile, KindImageScreenshot, KindImageWeb, KindImageGeneric:
		return true
	}

	return false
}

// IsImage 判断是否为图片类型，图片内容不进入搜索索引.
func (k ItemKind) IsImage() bool {
	switch k {
	case KindImageScreenshot, KindImageWeb, KindImageGeneric:
		return true
	}

	return false
}

// FormatType 富文本格式.
type FormatType string

const (
	FormatNone FormatType = ""
	FormatHTML FormatType = "html"
	FormatRTF  FormatType = "rtf"
)

// ClipboardItem 剪贴板条目，按内容哈希唯一.
type ClipboardItem struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`
	// 由 kind 与内容计算，不接受外部写入
	ContentHash string   `gorm:"size:32;uniqueIndex;not null" json:"content_hash"`
	Kind        ItemKind `gorm:"size:32;index;not null"       json:"kind"`
	// Content 与 BlobKey 二选一，超过阈值的内容存放在对象存储
	Content          string     `gorm:"type:text"     json:"content,omitempty"`
	BlobKey          string     `gorm:"size:255"      json:"blob_key,omitempty"`
	Size             int64      `gorm:"not null"      json:"size"`
	FormattedContent string     `gorm:"type:text"     json:"formatted_content,omitempty"`
	FormatType       FormatType `gorm:"size:8"        json:"format_type,omitempty"`
	IsSecret         bool       `gorm:"index"         json:"is_secret"`
	DisplayName      string     `gorm:"size:255"      json:"display_name,omitempty"`
	CreatedAt        time.Time  `gorm:"index"         json:"created_at"`
	LastTouchedAt    time.Time  `gorm:"index"         json:"last_touched_at"`
}

// TableName 指定表名.
func (ClipboardItem) TableName() string { return "clipboard_items" }

// Tag 标签.
type Tag struct {
	ID        uint      `gorm:"primaryKey"                   json:"id"`
	Name      string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Color     string    `gorm:"size:7;not null"              json:"color"`
	IsSystem  bool      `gorm:"index"                        json:"is_system"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名.
func (Tag) TableName() string { return "tags" }

// ItemTag 条目与标签的关联.
type ItemTag struct {
	ItemID    uint      `gorm:"primaryKey;autoIncrement:false"       json:"item_id"`
	TagID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名.
func (ItemTag) TableName() string { return "item_tags" }

// PasteEvent 粘贴记录，只追加，不随条目删除.
type PasteEvent struct {
	ID       uint      `gorm:"primaryKey"     json:"id"`
	ItemID   uint      `gorm:"index;not null" json:"item_id"`
	PastedAt time.Time `gorm:"index;not null" json:"pasted_at"`
}

// TableName 指定表名.
func (PasteEvent) TableName() string { return "paste_events" }

// SearchEntry 搜索索引行，完全由 clipboard_items 派生.
type SearchEntry struct {
	ItemID      uint   `gorm:"primaryKey;autoIncrement:false"`
	NameText    string `gorm:"type:text"`
	ContentText string `gorm:"type:text"`
}

// TableName 指定表名.
func (SearchEntry) TableName() string { return "search_entries" }

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{&ClipboardItem{}, &Tag{}, &ItemTag{}, &PasteEvent{}, &SearchEntry{}}
}
