// Package ingest 实现采集网关：所有写入都经过同一个任务队列，由单个 goroutine 按到达顺序执行.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/hub"
	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/internal/types"
	clog "github.com/yeisme/clipvault/pkg/log"
	"github.com/yeisme/clipvault/pkg/metrics"
	"github.com/yeisme/clipvault/pkg/rule"
	"github.com/yeisme/clipvault/pkg/tracing"
)

var (
	// ErrMalformed 采集信封无法解析或校验失败.
	ErrMalformed = errors.New("malformed ingestion payload")
	// ErrStopped 网关已停止，不再接受任务.
	ErrStopped = errors.New("ingest gateway stopped")
)

// 采集结果标签.
const (
	resultNew       = "new"
	resultTouched   = "touched"
	resultError     = "error"
	resultMalformed = "malformed"
)

// Publisher 接收写入成功后产生的通知，通常是广播中心.
type Publisher interface {
	Publish(n hub.Notification)
}

// Task 在写入队列中执行的任务，返回的通知在任务成功后发布.
type Task func(ctx context.Context) ([]hub.Notification, error)

// Options 网关选项.
type Options struct {
	QueueSize       int
	MaxPayloadBytes int64
}

// OptionsFromConfig 由配置生成选项.
func OptionsFromConfig(cfg *configs.IngestConfig) Options {
	return Options{QueueSize: cfg.QueueSize, MaxPayloadBytes: cfg.MaxPayloadBytes}
}

type task struct {
	ctx      context.Context
	run      Task
	done     chan error
	enqueued time.Time
}

// Gateway 采集网关.
type Gateway struct {
	store   *store.Store
	pub     Publisher
	opts    Options
	tasks   chan *task
	stopped chan struct{}
	log     zerolog.Logger
}

// New 创建网关，pub 可以为 nil.
func New(st *store.Store, pub Publisher, opts Options) *Gateway {
	if opts.QueueSize <= 0 {
		opts.QueueSize = configs.DefaultIngestQueueSize
	}

	if opts.MaxPayloadBytes <= 0 {
		opts.MaxPayloadBytes = configs.DefaultIngestMaxPayloadBytes
	}

	return &Gateway{
		store:   st,
		pub:     pub,
		opts:    opts,
		tasks:   make(chan *task, opts.QueueSize),
		stopped: make(chan struct{}),
		log:     clog.Component("ingest"),
	}
}

// Store 返回网关写入的存储.
func (g *Gateway) Store() *store.Store { return g.store }

// MaxPayloadBytes 单个采集信封的最大字节数.
func (g *Gateway) MaxPayloadBytes() int64 { return g.opts.MaxPayloadBytes }

// Run 执行写入队列直到 ctx 结束，只能调用一次.
func (g *Gateway) Run(ctx context.Context) error {
	defer close(g.stopped)

	g.log.Info().Int("queue_size", g.opts.QueueSize).Msg("ingest gateway started")

	for {
		select {
		case <-ctx.Done():
			g.drain()
			g.log.Info().Msg("ingest gateway stopped")

			return nil
		case t := <-g.tasks:
			metrics.IngestQueueDepth.Set(float64(len(g.tasks)))
			g.execute(t)
		}
	}
}

// drain 拒绝停止时仍在队列中的任务.
func (g *Gateway) drain() {
	for {
		select {
		case t := <-g.tasks:
			t.done <- ErrStopped
		default:
			return
		}
	}
}

func (g *Gateway) execute(t *task) {
	// 出队前调用方已放弃的任务直接跳过
	if err := t.ctx.Err(); err != nil {
		t.done <- err
		return
	}

	// 已出队的任务即使调用方放弃也要执行完
	notes, err := t.run(context.WithoutCancel(t.ctx))

	metrics.IngestDuration.Observe(time.Since(t.enqueued).Seconds())

	if err == nil && g.pub != nil {
		for _, n := range notes {
			g.pub.Publish(n)
		}
	}

	t.done <- err
}

// Exec 在写入队列中执行任务并等待结果.
// 调用方 ctx 结束时返回 ctx.Err()，已出队的任务仍会执行完.
func (g *Gateway) Exec(ctx context.Context, fn Task) error {
	t := &task{ctx: ctx, run: fn, done: make(chan error, 1), enqueued: time.Now()}

	select {
	case g.tasks <- t:
		metrics.IngestQueueDepth.Set(float64(len(g.tasks)))
	case <-ctx.Done():
		return ctx.Err()
	case <-g.stopped:
		return ErrStopped
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-g.stopped:
		select {
		case err := <-t.done:
			return err
		default:
			return ErrStopped
		}
	}
}

// Submit 校验事件并写入，返回写入结果.
func (g *Gateway) Submit(ctx context.Context, ev types.Event) (res *store.PutResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.submit")
	span.SetAttributes(attribute.String("clip.kind", ev.Type), attribute.Int("clip.size", len(ev.Content)))

	defer func() { tracing.EndSpan(span, err) }()

	if verr := rule.ValidateStruct(&ev); verr != nil {
		metrics.IngestTotal.WithLabelValues(ev.Type, resultMalformed).Inc()
		g.log.Warn().Err(verr).Str("type", ev.Type).Msg("rejected malformed event")

		return nil, fmt.Errorf("%w: %v", ErrMalformed, verr)
	}

	err = g.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		r, err := g.store.Put(ctx, ev)
		if err != nil {
			return nil, err
		}

		res = r

		return PutNotifications(r), nil
	})
	if err != nil {
		metrics.IngestTotal.WithLabelValues(ev.Type, resultError).Inc()
		return nil, err
	}

	result := resultTouched
	if res.WasNew {
		result = resultNew
	}

	metrics.IngestTotal.WithLabelValues(ev.Type, result).Inc()

	g.log.Debug().
		Uint("id", res.Item.ID).
		Str("kind", ev.Type).
		Bool("was_new", res.WasNew).
		Int("trimmed", len(res.Trimmed)).
		Msg("event ingested")

	return res, nil
}

// SubmitRaw 解析 JSON 采集信封后写入.
func (g *Gateway) SubmitRaw(ctx context.Context, data []byte) (*store.PutResult, error) {
	ev, err := g.Decode(data)
	if err != nil {
		return nil, err
	}

	return g.Submit(ctx, ev)
}

// Decode 解析 JSON 采集信封，失败返回 ErrMalformed.
func (g *Gateway) Decode(data []byte) (types.Event, error) {
	var ev types.Event

	if int64(len(data)) > g.opts.MaxPayloadBytes {
		return ev, g.malformed(fmt.Errorf("payload of %d bytes exceeds %d", len(data), g.opts.MaxPayloadBytes))
	}

	if err := sonic.Unmarshal(data, &ev); err != nil {
		return ev, g.malformed(err)
	}

	return ev, nil
}

func (g *Gateway) malformed(cause error) error {
	metrics.IngestTotal.WithLabelValues("", resultMalformed).Inc()
	g.log.Warn().Err(cause).Msg("rejected malformed payload")

	return fmt.Errorf("%w: %v", ErrMalformed, cause)
}

// PutNotifications 写入结果对应的通知：new_item 或 item_touched，然后每个被裁剪条目一条 item_deleted.
func PutNotifications(r *store.PutResult) []hub.Notification {
	event := types.EventItemTouched
	if r.WasNew {
		event = types.EventNewItem
	}

	notes := make([]hub.Notification, 0, 1+len(r.Trimmed))
	notes = append(notes, types.ItemEnvelope(event, r.Item))

	for _, it := range r.Trimmed {
		notes = append(notes, types.DeletedEnvelope(it.ID))
	}

	return notes
}
