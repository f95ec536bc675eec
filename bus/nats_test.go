package bus

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/raushankrgupta/fitly-tryon/models"
)

// Needs a running server, e.g. NATS_TEST_URL=nats://localhost:4222.
func TestEventPublisherRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_TEST_URL")
	if url == "" {
		t.Skip("NATS_TEST_URL not set")
	}

	c, err := Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	got := make(chan models.TryOnEvent, 1)
	sub, err := c.SubscribeJSON("tryon.test", func(ctx context.Context, data []byte) {
		var evt models.TryOnEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Errorf("decode event: %v", err)
			return
		}
		got <- evt
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	want := models.TryOnEvent{
		RecordID:   "rec-1",
		UserID:     "user-1",
		Category:   models.CategoryTop,
		Status:     models.TryOnStatusCompleted,
		ResultURL:  "https://cdn.test/result-images/a.png",
		HappenedAt: 1714564800,
	}
	if err := NewEventPublisher(c, "tryon.test").Publish(context.Background(), want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case evt := <-got:
		if diff := cmp.Diff(want, evt); diff != "" {
			t.Fatalf("event mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewEventPublisher(&Client{}, "tryon.test")
	if err := p.Publish(ctx, models.TryOnEvent{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
