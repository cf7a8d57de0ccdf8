package types

import "github.com/yeisme/clipvault/pkg/internal/model"

// 广播事件名.
const (
	EventNewItem     = "new_item"
	EventItemTouched = "item_touched"
	EventItemUpdated = "item_updated"
	EventItemDeleted = "item_deleted"
	EventTagsChanged = "tags_changed"
)

// 标签变更操作.
const (
	TagOpCreated  = "created"
	TagOpAttached = "attached"
	TagOpDetached = "detached"
	TagOpDeleted  = "deleted"
)

// Envelope 广播信封 {"event": ..., "data": {...}}.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ItemEventData new_item、item_touched、item_updated 与 item_deleted 的数据.
type ItemEventData struct {
	ID   uint         `json:"id"`
	Item *HistoryItem `json:"item,omitempty"`
}

// TagsEventData tags_changed 的数据，item_id 为 0 表示与具体条目无关.
type TagsEventData struct {
	TagID  uint   `json:"tag_id"`
	ItemID uint   `json:"item_id"`
	Op     string `json:"op"`
}

// ItemEnvelope 携带条目投影的通知.
func ItemEnvelope(event string, item *model.ClipboardItem) Envelope {
	return Envelope{Event: event, Data: ItemEventData{ID: item.ID, Item: NewHistoryItem(item)}}
}

// DeletedEnvelope item_deleted 通知.
func DeletedEnvelope(id uint) Envelope {
	return Envelope{Event: EventItemDeleted, Data: ItemEventData{ID: id}}
}

// TagsEnvelope tags_changed 通知.
func TagsEnvelope(tagID, itemID uint, op string) Envelope {
	return Envelope{Event: EventTagsChanged, Data: TagsEventData{TagID: tagID, ItemID: itemID, Op: op}}
}
