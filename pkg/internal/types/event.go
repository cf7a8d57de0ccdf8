package types

import (
	"time"

	"github.com/yeisme/clipvault/pkg/internal/model"
)

// Event 采集信封，所有生产者通道（HTTP、本地 socket、MQ、CLI、剪贴板监听）使用同一结构.
type Event struct {
	Type             string `json:"type"                        rule:"required,oneof=text file image/screenshot image/web image/generic"`
	Content          string `json:"content"`
	FormattedContent string `json:"formatted_content,omitempty"`
	FormatType       string `json:"format_type,omitempty"       rule:"omitempty,oneof=html rtf"`
}

// Kind 返回事件的条目类型.
func (e Event) Kind() model.ItemKind { return model.ItemKind(e.Type) }

// Equal 判断两个事件在类型、内容与富文本上是否完全相同.
func (e Event) Equal(o Event) bool {
	return e.Type == o.Type &&
		e.Content == o.Content &&
		e.FormattedContent == o.FormattedContent &&
		e.FormatType == o.FormatType
}

// IngestResponse HTTP 采集响应.
type IngestResponse struct {
	ID     uint         `json:"id"`
	WasNew bool         `json:"was_new"`
	Item   *HistoryItem `json:"item"`
}

// SocketReply 本地 socket 每个连接回复的一行 JSON.
type SocketReply struct {
	OK     bool   `json:"ok"`
	ID     uint   `json:"id,omitempty"`
	WasNew bool   `json:"was_new,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HistoryItem 历史视图使用的条目投影，机密条目不带内容.
type HistoryItem struct {
	ID               uint      `json:"id"`
	Kind             string    `json:"kind"`
	Content          string    `json:"content,omitempty"`
	FormattedContent string    `json:"formatted_content,omitempty"`
	FormatType       string    `json:"format_type,omitempty"`
	Size             int64     `json:"size"`
	HasBlob          bool      `json:"has_blob,omitempty"`
	IsSecret         bool      `json:"is_secret"`
	DisplayName      string    `json:"display_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	LastTouchedAt    time.Time `json:"last_touched_at"`
}

// NewHistoryItem 由存储模型生成历史投影.
func NewHistoryItem(it *model.ClipboardItem) *HistoryItem {
	h := &HistoryItem{
		ID:            it.ID,
		Kind:          string(it.Kind),
		Size:          it.Size,
		HasBlob:       it.BlobKey != "",
		IsSecret:      it.IsSecret,
		DisplayName:   it.DisplayName,
		CreatedAt:     it.CreatedAt,
		LastTouchedAt: it.LastTouchedAt,
	}

	if !it.IsSecret {
		h.Content = it.Content
		h.FormattedContent = it.FormattedContent
		h.FormatType = string(it.FormatType)
	}

	return h
}

// NewHistoryItems 批量生成历史投影.
func NewHistoryItems(items []model.ClipboardItem) []HistoryItem {
	out := make([]HistoryItem, 0, len(items))
	for i := range items {
		out = append(out, *NewHistoryItem(&items[i]))
	}

	return out
}
