package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/postvault/pkg/configs"
)

// stream 条目字段.
const (
	fieldUUID     = "uuid"
	fieldPayload  = "payload"
	fieldMetadata = "metadata"

	redisReadBatch = 16
)

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

// redisFactory 基于 Redis Streams 的 Pub/Sub：XADD 发布，消费组 XREADGROUP 读取，Ack 后 XACK.
// Nack 的消息留在 pending 列表中，不会重复投递给本进程.
func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	pub := &streamPublisher{rdb: rdb, maxLen: cfg.Redis.MaxLen}
	sub := &streamSubscriber{
		rdb:      rdb,
		cfg:      cfg.Redis,
		consumer: cfg.Common.ClientID + "-" + watermill.NewShortUUID(),
		logger:   logger,
		closing:  make(chan struct{}),
	}

	return pub, sub, nil
}

type streamPublisher struct {
	rdb    *redis.Client
	maxLen int64
}

// Publish 每条消息写入 topic 同名 stream.
func (p *streamPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		meta, err := sonic.MarshalString(msg.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}

		args := &redis.XAddArgs{
			Stream: topic,
			Values: map[string]any{fieldUUID: msg.UUID, fieldPayload: []byte(msg.Payload), fieldMetadata: meta},
		}
		if p.maxLen > 0 {
			args.MaxLen = p.maxLen
			args.Approx = true
		}

		if err := p.rdb.XAdd(msg.Context(), args).Err(); err != nil {
			return fmt.Errorf("xadd %s: %w", topic, err)
		}
	}

	return nil
}

// Close 连接归 subscriber 关闭.
func (p *streamPublisher) Close() error { return nil }

type streamSubscriber struct {
	rdb      *redis.Client
	cfg      configs.MQRedisConfig
	consumer string
	logger   watermill.LoggerAdapter

	wg        sync.WaitGroup
	closeOnce sync.Once
	closing   chan struct{}
}

// Subscribe 确保消费组存在后开始读取新消息.
func (s *streamSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	select {
	case <-s.closing:
		return nil, errors.New("redis subscriber closed")
	default:
	}

	err := s.rdb.XGroupCreateMkStream(ctx, topic, s.cfg.ConsumerGroup, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group on %s: %w", topic, err)
	}

	out := make(chan *message.Message)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		s.consume(ctx, topic, out)
	}()

	return out, nil
}

func (s *streamSubscriber) consume(ctx context.Context, topic string, out chan<- *message.Message) {
	fields := watermill.LogFields{"topic": topic, "consumer": s.consumer}

	for {
		if s.done(ctx) {
			return
		}

		streams, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.cfg.ConsumerGroup,
			Consumer: s.consumer,
			Streams:  []string{topic, ">"},
			Count:    redisReadBatch,
			Block:    s.cfg.Block(),
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			if !s.done(ctx) {
				s.logger.Error("xreadgroup failed", err, fields)
			}

			return
		}

		for _, st := range streams {
			for _, xm := range st.Messages {
				if !s.deliver(ctx, topic, xm, out) {
					return
				}
			}
		}
	}
}

// deliver 投递一条消息并等待 Ack/Nack，返回 false 表示订阅结束.
func (s *streamSubscriber) deliver(ctx context.Context, topic string, xm redis.XMessage, out chan<- *message.Message) bool {
	msg := toMessage(xm)
	msg.SetContext(ctx)

	select {
	case out <- msg:
	case <-s.closing:
		return false
	case <-ctx.Done():
		return false
	}

	select {
	case <-msg.Acked():
		if err := s.rdb.XAck(ctx, topic, s.cfg.ConsumerGroup, xm.ID).Err(); err != nil {
			s.logger.Error("xack failed", err, watermill.LogFields{"topic": topic, "id": xm.ID})
		}
	case <-msg.Nacked():
		s.logger.Info("message nacked, left pending", watermill.LogFields{"topic": topic, "id": xm.ID})
	case <-s.closing:
		return false
	case <-ctx.Done():
		return false
	}

	return true
}

func toMessage(xm redis.XMessage) *message.Message {
	uuid, _ := xm.Values[fieldUUID].(string)
	if uuid == "" {
		uuid = xm.ID
	}

	payload, _ := xm.Values[fieldPayload].(string)
	msg := message.NewMessage(uuid, []byte(payload))

	if raw, ok := xm.Values[fieldMetadata].(string); ok && raw != "" {
		var meta map[string]string
		if err := sonic.UnmarshalString(raw, &meta); err == nil {
			for k, v := range meta {
				msg.Metadata.Set(k, v)
			}
		}
	}

	return msg
}

func (s *streamSubscriber) done(ctx context.Context) bool {
	select {
	case <-s.closing:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Close 停止所有订阅并关闭连接.
func (s *streamSubscriber) Close() error {
	var err error

	s.closeOnce.Do(func() {
		close(s.closing)
		err = s.rdb.Close()
		s.wg.Wait()
	})

	return err
}
