package types

import "time"

// 标签过滤模式.
const (
	TagModeAny = "any"
	TagModeAll = "all"
)

// Filters 历史与搜索的过滤条件，各条件之间为且关系.
type Filters struct {
	Kinds   []string   `json:"kinds,omitempty"    rule:"omitempty,dive,oneof=text file image/screenshot image/web image/generic"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	TagIDs  []uint     `json:"tag_ids,omitempty"`
	TagMode string     `json:"tag_mode,omitempty" rule:"omitempty,oneof=any all"`
}

// IsZero 判断是否没有任何过滤条件.
func (f *Filters) IsZero() bool {
	return f == nil || (len(f.Kinds) == 0 && f.From == nil && f.To == nil && len(f.TagIDs) == 0)
}

// Mode 返回标签过滤模式，默认 any.
func (f *Filters) Mode() string {
	if f == nil || f.TagMode == "" {
		return TagModeAny
	}

	return f.TagMode
}
