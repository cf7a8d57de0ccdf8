package classify

import (
	"encoding/base64"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/yeisme/clipvault/pkg/internal/model"
	"github.com/yeisme/clipvault/pkg/internal/types"
)

// imagePayload 图片条目的内容格式.
type imagePayload struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Classifier 按 文件 → 图片 → 文本 的优先级归类快照，并抑制与上一次输出相同的事件.
// 去重槽位只在进程重启时清空. 可被多个 goroutine 共享.
type Classifier struct {
	mu   sync.Mutex
	last *types.Event
}

// New 创建分类器.
func New() *Classifier {
	return &Classifier{}
}

// Classify 归类快照；没有可识别内容或与上一次输出相同时返回 false.
func (c *Classifier) Classify(s Snapshot) (types.Event, bool) {
	ev, ok := Categorize(s)
	if !ok {
		return types.Event{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last != nil && c.last.Equal(ev) {
		return types.Event{}, false
	}

	c.last = &ev

	return ev, true
}

// Categorize 归类单个快照，不做去重.
func Categorize(s Snapshot) (types.Event, bool) {
	if s.hasFileList() {
		if list := fileList(s); list != "" {
			return types.Event{Type: string(model.KindFile), Content: list}, true
		}
	}

	if s.hasImage() {
		return imageEvent(s)
	}

	if strings.TrimSpace(s.Text) != "" {
		return textEvent(s), true
	}

	return types.Event{}, false
}

// fileList 返回原始文件列表；列表为空或存在非 file:// 条目时返回空串.
func fileList(s Snapshot) string {
	raw := s.URIList
	if raw == "" && s.Has(MimeGnomeCopied) {
		raw = s.Text
	}

	entries := 0

	for line := range strings.SplitSeq(raw, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case line == "", strings.HasPrefix(line, "#"), line == "copy", line == "cut":
			continue
		case strings.HasPrefix(line, "file://"):
			entries++
		default:
			return ""
		}
	}

	if entries == 0 {
		return ""
	}

	return raw
}

func imageEvent(s Snapshot) (types.Event, bool) {
	kind := model.KindImageGeneric

	switch {
	case s.hasHTML():
		kind = model.KindImageWeb
	case s.onlyImages():
		kind = model.KindImageScreenshot
	}

	mime := s.Image.MimeType
	if mime == "" {
		mime = MimePNG
	}

	payload, err := sonic.MarshalString(imagePayload{
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(s.Image.Data),
	})
	if err != nil {
		return types.Event{}, false
	}

	return types.Event{Type: string(kind), Content: payload}, true
}

func textEvent(s Snapshot) types.Event {
	if uri, ok := pathURI(s.Text); ok {
		return types.Event{Type: string(model.KindFile), Content: uri}
	}

	ev := types.Event{Type: string(model.KindText), Content: s.Text}

	switch {
	case s.HTML != "":
		ev.FormattedContent = s.HTML
		ev.FormatType = string(model.FormatHTML)
	case s.RTF != "":
		ev.FormattedContent = s.RTF
		ev.FormatType = string(model.FormatRTF)
	}

	return ev
}

// pathURI 单行且以绝对路径开头的文本转换为 file:// URI.
func pathURI(text string) (string, bool) {
	line := strings.TrimSpace(text)
	if line == "" || strings.ContainsAny(line, "\r\n") {
		return "", false
	}

	if !strings.HasPrefix(line, "/") && !filepath.IsAbs(line) {
		return "", false
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(line)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}

	return u.String(), true
}
