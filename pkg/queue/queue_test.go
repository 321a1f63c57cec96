package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/postvault/pkg/queue"
)

type capture struct {
	topic string
	msgs  []*message.Message
}

func (c *capture) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	c.topic = topic
	c.msgs = append(c.msgs, msgs...)

	return nil
}

// TestTopicPublishParse 测试信封、元数据与强类型解析.
func TestTopicPublishParse(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.FixedZone("CST", 8*3600))
	pub := &capture{}

	err := queue.PostPosted.Publish(context.Background(), pub, queue.PostPostedPayload{
		FileID: "f1", Platform: "webhook", PostID: "p-9", Key: "f1:webhook:1",
	}, queue.WithProducer("postvault"), queue.WithOccurredAt(at), queue.WithTraceID("abc"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if pub.topic != queue.TopicPostPosted || len(pub.msgs) != 1 {
		t.Fatalf("unexpected publish: topic=%q n=%d", pub.topic, len(pub.msgs))
	}

	msg := pub.msgs[0]
	if msg.Metadata.Get("trace_id") != "abc" || msg.Metadata.Get("producer") != "postvault" {
		t.Errorf("metadata not propagated: %v", msg.Metadata)
	}

	ev, err := queue.PostPosted.Parse(msg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if ev.Payload.PostID != "p-9" || ev.Header.Topic != queue.TopicPostPosted {
		t.Errorf("unexpected event %+v", ev)
	}

	if !ev.Header.OccurredAt.Equal(at) || ev.Header.OccurredAt.Location() != time.UTC {
		t.Errorf("occurred_at should be %v in UTC, got %v", at, ev.Header.OccurredAt)
	}
}

// TestPublishWithoutClient 测试未启用 MQ 时发布为空操作.
func TestPublishWithoutClient(t *testing.T) {
	if err := queue.TrashSwept.Publish(context.Background(), nil, queue.TrashSweptPayload{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
