// Package mq 基于 watermill 的消息队列客户端，承载回收站与发布的生命周期事件.
//
// 后端通过工厂注册：nats（可选 JetStream）、redis（Streams + 消费组）、
// memory（进程内 gochannel，开发与测试使用）.
package mq

import (
	"context"
	"fmt"
	"slices"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/postvault/pkg/configs"
	nlog "github.com/yeisme/postvault/pkg/log"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	factories = map[configs.MQType]Factory{}
)

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的 MQ 类型.
func GetRegisteredMQTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	closeFunc  func() // 用于关闭metrics服务器
}

// NewWithPubSub 使用已有的 Publisher/Subscriber 构建 Client.
func NewWithPubSub(pub message.Publisher, sub message.Subscriber) *Client {
	return &Client{publisher: pub, subscriber: sub}
}

// Publish 便捷发布.
func (c *Client) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	for _, m := range msgs {
		m.SetContext(ctx)

		if err := c.publisher.Publish(topic, m); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
	}

	return nil
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// Close 关闭资源.
func (c *Client) Close() error {
	var err error

	if c.publisher != nil {
		if e := c.publisher.Close(); e != nil {
			err = e
		}
	}

	if c.subscriber != nil {
		if e := c.subscriber.Close(); e != nil {
			err = e
		}
	}

	if c.router != nil {
		if e := c.router.Close(); e != nil {
			err = e
		}
	}

	if c.closeFunc != nil {
		c.closeFunc()
	}

	return err
}

// New 根据配置初始化消息队列客户端.
func New(ctx context.Context, cfg *configs.MQConfig) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLogger()

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	client := &Client{publisher: pub, subscriber: sub}

	if cfg.Common.EnableMetrics && cfg.Common.Endpoint != "" {
		if err := client.decorateMetrics(ctx, cfg.Common.Endpoint, logger); err != nil {
			_ = client.Close()

			return nil, err
		}
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("mq client ready")

	return client, nil
}

// decorateMetrics 为 publisher/subscriber 加上 prometheus 指标，并在独立端口暴露.
func (c *Client) decorateMetrics(ctx context.Context, endpoint string, logger watermill.LoggerAdapter) error {
	prometheusRegistry, closeMetricsServer := metrics.CreateRegistryAndServeHTTP(endpoint)
	c.closeFunc = closeMetricsServer

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	c.router = router

	metricsBuilder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "postvault", "mq")
	metricsBuilder.AddPrometheusRouterMetrics(router)

	if c.publisher, err = metricsBuilder.DecoratePublisher(c.publisher); err != nil {
		return fmt.Errorf("decorate publisher with metrics: %w", err)
	}

	if c.subscriber, err = metricsBuilder.DecorateSubscriber(c.subscriber); err != nil {
		return fmt.Errorf("decorate subscriber with metrics: %w", err)
	}

	go func() {
		if runErr := router.Run(ctx); runErr != nil {
			nlog.Logger().Error().Err(runErr).Msg("router run error")
		}
	}()

	nlog.Logger().Info().Str("endpoint", endpoint).Msg("MQ metrics enabled")

	return nil
}
