// Package hub 把写入结果广播给实时订阅者.
//
// 发布永不阻塞：每个订阅者有独立的有界收件箱和一个投递 goroutine，
// 收件箱满或单条消息超过投递截止时间的订阅者会被剔除，其通道随之关闭.
package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/types"
	clog "github.com/yeisme/clipvault/pkg/log"
	"github.com/yeisme/clipvault/pkg/metrics"
)

// Notification 广播信封.
type Notification = types.Envelope

// Options 广播中心选项.
type Options struct {
	BufferSize  int
	SendTimeout time.Duration
}

// OptionsFromConfig 由配置生成选项.
func OptionsFromConfig(cfg *configs.HubConfig) Options {
	return Options{BufferSize: cfg.BufferSize, SendTimeout: cfg.SendTimeout}
}

// Hub 广播中心.
type Hub struct {
	opts     Options
	registry *SubscriberRegistry
	log      zerolog.Logger
	closed   atomic.Bool
}

// New 创建广播中心，未设置的选项使用默认值.
func New(opts Options) *Hub {
	if opts.BufferSize <= 0 {
		opts.BufferSize = configs.DefaultHubBufferSize
	}

	if opts.SendTimeout <= 0 {
		opts.SendTimeout = configs.DefaultHubSendTimeout
	}

	return &Hub{
		opts:     opts,
		registry: newRegistry(),
		log:      clog.Component("hub"),
	}
}

// Subscribe 注册新订阅者；广播中心已关闭时返回已关闭的订阅.
func (h *Hub) Subscribe() *Subscription {
	s := newSubscription(h, h.opts.BufferSize)

	if h.closed.Load() {
		s.close()
		close(s.out)

		return s
	}

	h.registry.add(s)
	metrics.HubSubscribers.Inc()

	go s.pump(h.opts.SendTimeout)

	// 与 Close 并发时补关
	if h.closed.Load() {
		s.Close()
	}

	h.log.Debug().Str("subscriber", s.id).Int("subscribers", h.registry.Len()).Msg("subscribed")

	return s
}

// Publish 把通知放入每个订阅者的收件箱，不等待投递.
func (h *Hub) Publish(n Notification) {
	if h.closed.Load() {
		return
	}

	metrics.HubPublished.WithLabelValues(n.Event).Inc()

	for _, s := range h.registry.snapshot() {
		if !s.offer(n) {
			h.evict(s, "full")
		}
	}
}

// Len 返回当前订阅者数.
func (h *Hub) Len() int {
	return h.registry.Len()
}

// Closed 报告广播中心是否已关闭.
func (h *Hub) Closed() bool { return h.closed.Load() }

// Close 关闭广播中心并关闭全部订阅.
func (h *Hub) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}

	for _, s := range h.registry.snapshot() {
		s.Close()
	}
}

func (h *Hub) evict(s *Subscription, reason string) {
	if !s.close() {
		return
	}

	metrics.HubEvictions.WithLabelValues(reason).Inc()
	h.log.Warn().Str("subscriber", s.id).Str("reason", reason).Msg("subscriber evicted")
}

func (h *Hub) unregister(s *Subscription) {
	if h.registry.remove(s.id) {
		metrics.HubSubscribers.Dec()
	}
}

// SubscriberRegistry 订阅者注册表，由广播中心持有.
type SubscriberRegistry struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

func newRegistry() *SubscriberRegistry {
	return &SubscriberRegistry{subs: make(map[string]*Subscription)}
}

func (r *SubscriberRegistry) add(s *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs[s.id] = s
}

func (r *SubscriberRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[id]; !ok {
		return false
	}

	delete(r.subs, id)

	return true
}

func (r *SubscriberRegistry) snapshot() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}

	return out
}

// Len 返回订阅者数.
func (r *SubscriberRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subs)
}
