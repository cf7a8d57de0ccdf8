// Package mq 把广播中心的通知转发到消息队列，供进程外的消费者订阅.
//
// 转发器作为广播中心的一个普通订阅者运行，本地缓冲满时丢弃通知而不是拖慢广播中心；
// 发布经过熔断器，消息队列持续失败时快速拒绝.
package mq

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/hub"
	"github.com/yeisme/clipvault/pkg/internal/types"
	clog "github.com/yeisme/clipvault/pkg/log"
	"github.com/yeisme/clipvault/pkg/metrics"
	"github.com/yeisme/clipvault/pkg/queue"
)

// Producer 转发消息头中的生产者标识.
const Producer = "clipvault"

// Relay 广播转发器.
type Relay struct {
	pub message.Publisher
	hub *hub.Hub
	cfg configs.EventsConfig
	cb  *gobreaker.CircuitBreaker
	log zerolog.Logger
}

// NewRelay 创建转发器，cb.Enabled 为 false 时不经过熔断器.
func NewRelay(pub message.Publisher, h *hub.Hub, cfg configs.EventsConfig, cb configs.CircuitBreakerConfig) *Relay {
	r := &Relay{pub: pub, hub: h, cfg: cfg, log: clog.Component("relay")}

	if cb.Enabled {
		r.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "relay",
			MaxRequests: cb.MaxRequestsInHalf,
			Interval:    cb.Interval(),
			Timeout:     cb.Timeout(),
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return cb.ShouldTrip(counts.Requests, counts.TotalFailures)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				r.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("relay circuit breaker state changed")
			},
		})
	}

	return r
}

// Enabled 报告事件是否需要转发.
func (r *Relay) Enabled(event string) bool {
	if !r.cfg.Enabled {
		return false
	}

	switch event {
	case types.EventNewItem:
		return r.cfg.Item.New
	case types.EventItemTouched:
		return r.cfg.Item.Touched
	case types.EventItemUpdated:
		return r.cfg.Item.Updated
	case types.EventItemDeleted:
		return r.cfg.Item.Deleted
	case types.EventTagsChanged:
		return r.cfg.Tags.Changed
	default:
		return false
	}
}

// Run 订阅广播中心并转发，直到 ctx 取消或广播中心关闭.
func (r *Relay) Run(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Debug().Msg("event relay disabled")
		return nil
	}

	size := r.cfg.Buffer
	if size <= 0 {
		size = 1
	}

	pending := make(chan hub.Notification, size)

	go func() {
		defer close(pending)
		r.collect(ctx, pending)
	}()

	r.log.Info().Str("prefix", r.cfg.TopicPrefix).Int("buffer", size).Msg("event relay started")

	for n := range pending {
		r.forward(n)
	}

	return nil
}

// collect 把订阅到的通知放入本地缓冲；被广播中心剔除后重新订阅.
func (r *Relay) collect(ctx context.Context, pending chan<- hub.Notification) {
	for !r.hub.Closed() {
		sub := r.hub.Subscribe()

		if !r.drain(ctx, sub, pending) {
			sub.Close()
			return
		}

		r.log.Warn().Str("subscriber", sub.ID()).Msg("relay subscription closed, resubscribing")
	}
}

// drain 返回 false 表示 ctx 已取消.
func (r *Relay) drain(ctx context.Context, sub *hub.Subscription, pending chan<- hub.Notification) bool {
	for {
		select {
		case n, ok := <-sub.C():
			if !ok {
				return true
			}

			if !r.Enabled(n.Event) {
				continue
			}

			select {
			case pending <- n:
			default:
				observe(n.Event, "dropped")
			}
		case <-ctx.Done():
			return false
		}
	}
}

func (r *Relay) forward(n hub.Notification) {
	publish := func() (any, error) {
		return nil, queue.PublishBroadcast(r.pub, r.cfg.TopicPrefix, n, queue.WithProducer(Producer))
	}

	var err error
	if r.cb != nil {
		_, err = r.cb.Execute(publish)
	} else {
		_, err = publish()
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		observe(n.Event, "rejected")
	case err != nil:
		observe(n.Event, "error")
		r.log.Error().Err(err).Str("event", n.Event).Msg("relay publish failed")
	default:
		observe(n.Event, "ok")
	}
}

func observe(event, result string) {
	metrics.RelayPublished.WithLabelValues(event, result).Inc()
}
