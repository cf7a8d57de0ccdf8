// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

import (
	"strings"

	"github.com/yeisme/clipvault/pkg/internal/types"
)

// 主题命名规范：clip.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：ingest(采集)、events(广播转发)

const (
	// TopicIngestRequested 外部生产者请求写入一条剪贴板内容，负载为采集信封本身.
	TopicIngestRequested = "clip.ingest.requested"

	// TopicEventsPrefix 广播事件转发主题前缀，实际主题为 clip.events.<event>.
	TopicEventsPrefix = "clip.events."

	TopicEventsNewItem     = TopicEventsPrefix + types.EventNewItem
	TopicEventsItemTouched = TopicEventsPrefix + types.EventItemTouched
	TopicEventsItemUpdated = TopicEventsPrefix + types.EventItemUpdated
	TopicEventsItemDeleted = TopicEventsPrefix + types.EventItemDeleted
	TopicEventsTagsChanged = TopicEventsPrefix + types.EventTagsChanged
)

// EventTopics 全部广播转发主题.
var EventTopics = []string{
	TopicEventsNewItem, TopicEventsItemTouched, TopicEventsItemUpdated,
	TopicEventsItemDeleted, TopicEventsTagsChanged,
}

// EventTopic 返回事件对应的主题，prefix 为空时使用默认前缀.
func EventTopic(prefix, event string) string {
	if prefix == "" {
		prefix = TopicEventsPrefix
	}

	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}

	return prefix + event
}
