// Package queue 定义内容生命周期事件：主题、负载与消息信封.
//
// 每个主题由 Topic[T] 绑定负载类型，发布与解析共用同一个描述符：
//
//	_ = queue.FileTrashed.Publish(ctx, client, queue.FileTrashedPayload{...},
//		queue.WithProducer("postvault"), queue.WithOccurredAt(now))
//
//	ev, err := queue.PostPosted.Parse(msg)
//
// 信封 JSON 为 {"header": {...}, "payload": {...}}，header 同时写入消息元数据，
// 便于不解析 body 的路由与过滤. 消息 ID 为 ULID，按时间有序.
// 事件为尽力投递，丢失不影响实体存储中的状态，消费者应忽略未知字段.
package queue

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

const PayloadVersionV1 = "v1"

// Publisher 发布端抽象，mq.Client 实现该接口.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Option 修改事件头.
type Option func(*EventHeader)

// WithTraceID 设置关联的 trace ID.
func WithTraceID(id string) Option { return func(h *EventHeader) { h.TraceID = id } }

// WithOccurredAt 覆盖事件发生时间，统一转为 UTC.
func WithOccurredAt(t time.Time) Option { return func(h *EventHeader) { h.OccurredAt = t.UTC() } }

// WithProducer 设置生产者.
func WithProducer(p string) Option { return func(h *EventHeader) { h.Producer = p } }

// Topic 主题名与负载类型的绑定.
type Topic[T any] struct {
	Name string
}

var (
	ProjectTrashed  = Topic[ProjectTrashedPayload]{TopicProjectTrashed}
	ProjectRestored = Topic[ProjectRestoredPayload]{TopicProjectRestored}
	FileTrashed     = Topic[FileTrashedPayload]{TopicFileTrashed}
	FileRestored    = Topic[FileRestoredPayload]{TopicFileRestored}
	TrashPurged     = Topic[TrashPurgedPayload]{TopicTrashPurged}
	TrashSwept      = Topic[TrashSweptPayload]{TopicTrashSwept}
	PostScheduled   = Topic[PostScheduledPayload]{TopicPostScheduled}
	PostPosted      = Topic[PostPostedPayload]{TopicPostPosted}
	PostFailed      = Topic[PostFailedPayload]{TopicPostFailed}
)

// NewMessage 构造 watermill 消息.
func (t Topic[T]) NewMessage(payload T, opts ...Option) (*message.Message, error) {
	hdr := EventHeader{Topic: t.Name, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1}
	for _, opt := range opts {
		opt(&hdr)
	}

	data, err := sonic.Marshal(Message[T]{Header: hdr, Payload: payload})
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewULID(), data)
	msg.Metadata.Set("topic", hdr.Topic)
	msg.Metadata.Set("occurred_at", hdr.OccurredAt.Format(time.RFC3339Nano))
	msg.Metadata.Set("version", hdr.Version)

	if hdr.TraceID != "" {
		msg.Metadata.Set("trace_id", hdr.TraceID)
	}

	if hdr.Producer != "" {
		msg.Metadata.Set("producer", hdr.Producer)
	}

	return msg, nil
}

// Publish 构造信封并发布，pub 为 nil 时不做任何事.
func (t Topic[T]) Publish(ctx context.Context, pub Publisher, payload T, opts ...Option) error {
	if pub == nil {
		return nil
	}

	msg, err := t.NewMessage(payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(ctx, t.Name, msg)
}

// Parse 解出强类型信封.
func (t Topic[T]) Parse(msg *message.Message) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(msg.Payload, &m)

	return m, err
}
