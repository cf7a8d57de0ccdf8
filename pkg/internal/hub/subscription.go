package hub

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// Subscription 单个订阅者.
type Subscription struct {
	id    string
	hub   *Hub
	inbox chan Notification
	out   chan Notification
	done  chan struct{}
	once  sync.Once
}

func newSubscription(h *Hub, buffer int) *Subscription {
	return &Subscription{
		id:    ulid.MustNew(ulid.Now(), rand.Reader).String(),
		hub:   h,
		inbox: make(chan Notification, buffer),
		out:   make(chan Notification),
		done:  make(chan struct{}),
	}
}

// ID 订阅者 id（ULID）.
func (s *Subscription) ID() string { return s.id }

// C 按发布顺序投递通知；订阅关闭或被剔除后通道关闭.
func (s *Subscription) C() <-chan Notification { return s.out }

// Done 订阅关闭时关闭.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close 取消订阅，可重复调用.
func (s *Subscription) Close() {
	s.close()
}

// close 返回本次调用是否真正关闭了订阅.
func (s *Subscription) close() bool {
	closed := false

	s.once.Do(func() {
		close(s.done)
		s.hub.unregister(s)

		closed = true
	})

	return closed
}

// offer 非阻塞放入收件箱，收件箱已满时返回 false.
func (s *Subscription) offer(n Notification) bool {
	select {
	case <-s.done:
		return true
	default:
	}

	select {
	case s.inbox <- n:
		return true
	default:
		return false
	}
}

// pump 把收件箱中的通知逐条投递到 C，单条超过 timeout 时剔除订阅者.
func (s *Subscription) pump(timeout time.Duration) {
	defer close(s.out)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-s.done:
			return
		case n := <-s.inbox:
			timer.Reset(timeout)

			select {
			case s.out <- n:
			case <-timer.C:
				s.hub.evict(s, "timeout")
				return
			case <-s.done:
				return
			}
		}
	}
}
