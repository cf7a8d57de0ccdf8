package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/clipvault/pkg/internal/ingest"
	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/internal/store/storetest"
	"github.com/yeisme/clipvault/pkg/internal/types"
	"github.com/yeisme/clipvault/pkg/queue"
)

func TestSubscriberHandle(t *testing.T) {
	f := newFixture(t, 0)
	sub := ingest.NewSubscriber(f.gw, "")

	if sub.Topic() != queue.TopicIngestRequested {
		t.Fatalf("topic = %q", sub.Topic())
	}

	msg, err := queue.NewIngestMessage(types.Event{Type: "text", Content: "via mq"})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	if err := sub.Handle(msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if n := f.next(t); n.Event != types.EventNewItem {
		t.Fatalf("notification = %+v", n)
	}

	// 格式错误的消息被确认并丢弃
	if err := sub.Handle(message.NewMessage("bad", []byte("not json"))); err != nil {
		t.Fatalf("malformed message should be acked, got %v", err)
	}

	if c, _ := f.st.Count(context.Background()); c != 1 {
		t.Fatalf("count = %d", c)
	}
}

func TestSubscriberNacksStoreFailure(t *testing.T) {
	st := storetest.New(t, store.Options{})
	gw := ingest.New(st, nil, ingest.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = gw.Run(ctx)

	msg, _ := queue.NewIngestMessage(types.Event{Type: "text", Content: "lost"})

	if err := ingest.NewSubscriber(gw, "").Handle(msg); !errors.Is(err, ingest.ErrStopped) {
		t.Fatalf("handle = %v, want ErrStopped", err)
	}
}
