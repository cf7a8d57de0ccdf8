package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/hub"
	"github.com/yeisme/clipvault/pkg/internal/mq"
	"github.com/yeisme/clipvault/pkg/internal/types"
	"github.com/yeisme/clipvault/pkg/queue"
)

func eventsConfig() configs.EventsConfig {
	return configs.EventsConfig{
		Enabled:     true,
		TopicPrefix: "test.events.",
		Buffer:      16,
		Item:        configs.ItemEventsConfig{New: true, Deleted: true},
		Tags:        configs.TagsEventsConfig{Changed: true},
	}
}

func TestEnabled(t *testing.T) {
	r := mq.NewRelay(nil, hub.New(hub.Options{}), eventsConfig(), configs.CircuitBreakerConfig{})

	cases := map[string]bool{
		types.EventNewItem:     true,
		types.EventItemTouched: false,
		types.EventItemUpdated: false,
		types.EventItemDeleted: true,
		types.EventTagsChanged: true,
		"unknown":              false,
	}

	for event, want := range cases {
		if got := r.Enabled(event); got != want {
			t.Errorf("Enabled(%q) = %v, want %v", event, got, want)
		}
	}

	disabled := eventsConfig()
	disabled.Enabled = false

	if mq.NewRelay(nil, hub.New(hub.Options{}), disabled, configs.CircuitBreakerConfig{}).Enabled(types.EventNewItem) {
		t.Error("disabled relay should not forward")
	}
}

func TestRelayForwardsEnabledEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })

	cfg := eventsConfig()

	deleted, err := ch.Subscribe(ctx, queue.EventTopic(cfg.TopicPrefix, types.EventItemDeleted))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	touched, err := ch.Subscribe(ctx, queue.EventTopic(cfg.TopicPrefix, types.EventItemTouched))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h := hub.New(hub.Options{BufferSize: 8, SendTimeout: time.Second})
	r := mq.NewRelay(ch, h, cfg, configs.CircuitBreakerConfig{})

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)

	go func() { done <- r.Run(runCtx) }()

	t.Cleanup(func() {
		stop()
		<-done
		h.Close()
	})

	// 等待转发器完成订阅
	deadline := time.Now().Add(2 * time.Second)
	for h.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("relay never subscribed")
		}

		time.Sleep(5 * time.Millisecond)
	}

	h.Publish(types.Envelope{Event: types.EventItemTouched, Data: types.ItemEventData{ID: 1}})
	h.Publish(types.DeletedEnvelope(7))

	select {
	case msg := <-deleted:
		got, err := queue.ParseBroadcast(msg)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}

		if got.Payload.Event != types.EventItemDeleted || got.Header.Producer != mq.Producer {
			t.Errorf("message = %+v", got)
		}

		if got.Header.Topic != "test.events.item_deleted" {
			t.Errorf("topic = %q", got.Header.Topic)
		}

		msg.Ack()
	case <-ctx.Done():
		t.Fatal("item_deleted was not relayed")
	}

	select {
	case msg := <-touched:
		t.Errorf("disabled event relayed: %s", msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRelayStopsWhenHubCloses(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })

	h := hub.New(hub.Options{})
	h.Close()

	done := make(chan error, 1)

	go func() { done <- mq.NewRelay(ch, h, eventsConfig(), configs.CircuitBreakerConfig{}).Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after hub closed")
	}
}
