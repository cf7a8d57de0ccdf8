package classify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/internal/types"
	clog "github.com/yeisme/clipvault/pkg/log"
)

// Submitter 接收归类后的事件，通常是采集网关.
type Submitter interface {
	Submit(ctx context.Context, ev types.Event) (*store.PutResult, error)
}

// Monitor 把探针、分类器与采集网关串联起来.
type Monitor struct {
	probe      Probe
	classifier *Classifier
	sink       Submitter
	log        zerolog.Logger
}

// NewMonitor 创建剪贴板监听器，classifier 为 nil 时新建一个.
func NewMonitor(probe Probe, classifier *Classifier, sink Submitter) *Monitor {
	if classifier == nil {
		classifier = New()
	}

	return &Monitor{
		probe:      probe,
		classifier: classifier,
		sink:       sink,
		log:        clog.Component("monitor"),
	}
}

// Run 持续处理剪贴板变化直到 ctx 结束.
func (m *Monitor) Run(ctx context.Context) error {
	changes, err := m.probe.Changes(ctx)
	if err != nil {
		return err
	}

	m.log.Info().Msg("clipboard monitor started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("clipboard monitor stopped")
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}

			m.handle(ctx)
		}
	}
}

func (m *Monitor) handle(ctx context.Context) {
	snap, err := m.probe.Snapshot(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.log.Warn().Err(err).Msg("read clipboard failed")
		}

		return
	}

	ev, ok := m.classifier.Classify(snap)
	if !ok {
		return
	}

	res, err := m.sink.Submit(ctx, ev)
	if err != nil {
		// 去重槽位已记下该事件，相同内容要等剪贴板变化后才会再次提交
		m.log.Error().Err(err).Str("kind", ev.Type).Msg("submit clipboard event failed")

		return
	}

	m.log.Debug().Uint("id", res.Item.ID).Bool("was_new", res.WasNew).Str("kind", ev.Type).Msg("clipboard captured")
}
