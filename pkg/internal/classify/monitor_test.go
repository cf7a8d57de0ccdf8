package classify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/clipvault/pkg/internal/classify"
	"github.com/yeisme/clipvault/pkg/internal/model"
	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/internal/types"
)

type recorder struct {
	events chan types.Event
	fail   error
}

func (r *recorder) Submit(_ context.Context, ev types.Event) (*store.PutResult, error) {
	r.events <- ev

	if r.fail != nil {
		return nil, r.fail
	}

	return &store.PutResult{Item: &model.ClipboardItem{ID: 1}, WasNew: true}, nil
}

func (r *recorder) next(t *testing.T) types.Event {
	t.Helper()

	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for submit")
		return types.Event{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()

	select {
	case ev := <-r.events:
		t.Fatalf("unexpected submit: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func startMonitor(t *testing.T, sink classify.Submitter) *classify.FakeProbe {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	probe := classify.NewFakeProbe()
	mon := classify.NewMonitor(probe, nil, sink)

	done := make(chan error, 1)

	go func() { done <- mon.Run(ctx) }()

	t.Cleanup(func() {
		cancel()

		if err := <-done; err != nil {
			t.Errorf("monitor run: %v", err)
		}
	})

	return probe
}

func TestMonitorSubmitsClassifiedEvents(t *testing.T) {
	rec := &recorder{events: make(chan types.Event, 8)}
	probe := startMonitor(t, rec)

	hello := classify.Snapshot{Kinds: []string{classify.MimeText}, Text: "hello"}

	probe.Push(hello)

	if ev := rec.next(t); ev.Content != "hello" || ev.Type != "text" {
		t.Fatalf("event = %+v", ev)
	}

	probe.Push(hello)
	rec.none(t)

	probe.Push(classify.Snapshot{Kinds: []string{classify.MimeText}, Text: "/etc/hosts"})

	if ev := rec.next(t); ev.Type != "file" || ev.Content != "file:///etc/hosts" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestMonitorKeepsSuppressionAfterSubmitFailure(t *testing.T) {
	rec := &recorder{events: make(chan types.Event, 8), fail: errors.New("store down")}
	probe := startMonitor(t, rec)

	snap := classify.Snapshot{Kinds: []string{classify.MimeText}, Text: "same"}

	probe.Push(snap)
	rec.next(t)

	probe.Push(snap)
	rec.none(t)

	probe.Push(classify.Snapshot{Kinds: []string{classify.MimeText}, Text: "changed"})

	if ev := rec.next(t); ev.Content != "changed" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestMonitorSkipsProbeErrors(t *testing.T) {
	rec := &recorder{events: make(chan types.Event, 8)}
	probe := startMonitor(t, rec)

	probe.Fail(errors.New("no display"))
	probe.Push(classify.Snapshot{Kinds: []string{classify.MimeText}, Text: "lost"})
	rec.none(t)

	probe.Fail(nil)
	probe.Push(classify.Snapshot{Kinds: []string{classify.MimeText}, Text: "kept"})

	if ev := rec.next(t); ev.Content != "kept" {
		t.Fatalf("event = %+v", ev)
	}
}
