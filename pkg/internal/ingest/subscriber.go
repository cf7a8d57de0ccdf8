package ingest

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	clog "github.com/yeisme/clipvault/pkg/log"
	"github.com/yeisme/clipvault/pkg/queue"
)

// Subscriber 消息队列采集通道：格式错误的消息确认后丢弃，写入失败的消息 nack 等待重投.
type Subscriber struct {
	gw    *Gateway
	topic string
	log   zerolog.Logger
}

// NewSubscriber 创建消息队列采集通道，topic 为空时使用 clip.ingest.requested.
func NewSubscriber(gw *Gateway, topic string) *Subscriber {
	if topic == "" {
		topic = queue.TopicIngestRequested
	}

	return &Subscriber{gw: gw, topic: topic, log: clog.Component("ingest.mq")}
}

// Topic 返回订阅主题.
func (s *Subscriber) Topic() string { return s.topic }

// Register 把处理函数挂到路由上.
func (s *Subscriber) Register(router *message.Router, sub message.Subscriber) {
	router.AddNoPublisherHandler("ingest", s.topic, sub, s.Handle)
}

// Handle 处理一条采集消息，返回错误时路由器会 nack.
func (s *Subscriber) Handle(msg *message.Message) error {
	res, err := s.gw.SubmitRaw(msg.Context(), msg.Payload)

	switch {
	case errors.Is(err, ErrMalformed):
		s.log.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropped malformed message")
		return nil
	case err != nil:
		return err
	}

	s.log.Debug().Str("message_id", msg.UUID).Uint("id", res.Item.ID).Bool("was_new", res.WasNew).Msg("message ingested")

	return nil
}
