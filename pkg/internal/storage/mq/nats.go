package mq

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/yeisme/postvault/pkg/configs"
)

const (
	natsDrainTimeout   = 30 * time.Second
	natsFlusherTimeout = 10 * time.Second
)

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// natsFactory 基于 watermill-nats 创建 Publisher 与 Subscriber，JetStream 开启时事件持久化.
func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	url := cfg.Common.URL
	if len(cfg.NATS.ClusterURLs) > 0 {
		url = strings.Join(cfg.NATS.ClusterURLs, ",")
	}

	opts := natsOptions(cfg)
	js := wmnats.JetStreamConfig{
		Disabled:      !cfg.NATS.JetStream,
		AutoProvision: cfg.NATS.AutoProvision,
		TrackMsgId:    cfg.NATS.TrackMsgID,
		AckAsync:      cfg.NATS.AckAsync,
		DurablePrefix: cfg.NATS.DurablePrefix,
	}
	marshaler := &wmnats.JSONMarshaler{}

	logger.Debug("nats pubsub config", watermill.LogFields{
		"url":         url,
		"jetstream":   cfg.NATS.JetStream,
		"queue_group": cfg.NATS.QueueGroup,
	})

	pub, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Marshaler:   marshaler,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	sub, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:              url,
		NatsOptions:      opts,
		JetStream:        js,
		Unmarshaler:      marshaler,
		QueueGroupPrefix: cfg.NATS.QueueGroup,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}

	return pub, sub, nil
}

func natsOptions(cfg *configs.MQConfig) []nats.Option {
	c := cfg.Common
	opts := []nats.Option{
		nats.Name(c.ClientID),
		nats.MaxReconnects(c.MaxReconnects),
		nats.ReconnectWait(time.Duration(c.ReconnectWait) * time.Second),
		nats.PingInterval(time.Duration(c.PingInterval) * time.Second),
		nats.MaxPingsOutstanding(c.MaxPingsOut),
		nats.ReconnectBufSize(c.BufferSize),
		nats.DrainTimeout(natsDrainTimeout),
		nats.FlusherTimeout(natsFlusherTimeout),
		nats.RetryOnFailedConnect(!c.StrictConnect),
	}

	switch {
	case cfg.NATS.JWT != "":
		opts = append(opts, nats.UserJWTAndSeed(cfg.NATS.JWT, cfg.NATS.NKey))
	case c.User != "":
		opts = append(opts, nats.UserInfo(c.User, c.Password))
	}

	return opts
}
