package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/postvault/pkg/configs"
)

const defaultMemoryBuffer = 256

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 创建进程内 gochannel Pub/Sub，publisher 与 subscriber 为同一实例.
func memoryFactory(_ context.Context, _ *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	ps := NewMemoryPubSub(logger)

	return ps, nopCloseSubscriber{ps}, nil
}

// NewMemoryPubSub 创建 gochannel Pub/Sub.
func NewMemoryPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: defaultMemoryBuffer}, logger)
}

// nopCloseSubscriber 避免 Client.Close 重复关闭同一个 gochannel.
type nopCloseSubscriber struct {
	*gochannel.GoChannel
}

func (nopCloseSubscriber) Close() error { return nil }
