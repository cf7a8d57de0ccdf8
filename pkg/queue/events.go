package queue

import (
	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

// -------------------------- 基于业务封装 events --------------------------

// PublishBroadcast 把广播信封发布到 <prefix><event>.
// 可通过可选项 opts 注入 TraceID、Producer 等头部信息。
func PublishBroadcast(pub message.Publisher, prefix string, env BroadcastPayload, opts ...func(*EventHeader)) error {
	topic := EventTopic(prefix, env.Event)

	msg, err := NewWatermillMessage(topic, env, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// ParseBroadcast 将 Watermill 消息解析为强类型 Message（data 解码为 map）。
func ParseBroadcast(msg *message.Message) (Message[BroadcastPayload], error) {
	return ParseWatermillMessage[BroadcastPayload](msg)
}

// NewIngestMessage 构造采集请求消息，消息体为裸采集信封，便于非 Go 生产者直接发布.
func NewIngestMessage(ev IngestPayload) (*message.Message, error) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("topic", TopicIngestRequested)

	return msg, nil
}

// PublishIngest 发布采集请求.
func PublishIngest(pub message.Publisher, topic string, ev IngestPayload) error {
	if topic == "" {
		topic = TopicIngestRequested
	}

	msg, err := NewIngestMessage(ev)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}
