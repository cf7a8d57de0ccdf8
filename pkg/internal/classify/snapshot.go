// Package classify 把剪贴板快照归类为采集事件，并提供系统剪贴板与脚本化两种探针.
package classify

import (
	"slices"
	"strings"
)

// 剪贴板中常见的 MIME 类型.
const (
	MimeText        = "text/plain"
	MimeHTML        = "text/html"
	MimeRTF         = "text/rtf"
	MimeURIList     = "text/uri-list"
	MimeGnomeCopied = "x-special/gnome-copied-files"
	MimePNG         = "image/png"
)

// Image 快照中的图片数据.
type Image struct {
	MimeType string
	Data     []byte
}

// Snapshot 某一时刻剪贴板的全部可用格式.
type Snapshot struct {
	// Kinds 剪贴板宣告的全部 MIME 类型
	Kinds   []string
	Text    string
	URIList string
	HTML    string
	RTF     string
	Image   *Image
}

// Has 判断快照是否宣告了给定类型.
func (s Snapshot) Has(kind string) bool {
	return slices.Contains(s.Kinds, kind)
}

func (s Snapshot) hasFileList() bool {
	return s.Has(MimeURIList) || s.Has(MimeGnomeCopied)
}

func (s Snapshot) hasHTML() bool {
	return s.Has(MimeHTML) || s.HTML != ""
}

// onlyImages 判断宣告的类型是否全部是图片.
func (s Snapshot) onlyImages() bool {
	if len(s.Kinds) == 0 {
		return false
	}

	for _, k := range s.Kinds {
		if !strings.HasPrefix(k, "image/") {
			return false
		}
	}

	return true
}

func (s Snapshot) hasImage() bool {
	return s.Image != nil && len(s.Image.Data) > 0
}
