package mq

import (
	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	nlog "github.com/yeisme/postvault/pkg/log"
)

// zerologAdapter 将 zerolog 适配为 watermill.LoggerAdapter，字段按原样写入结构化日志.
type zerologAdapter struct {
	l zerolog.Logger
}

// NewLogger 返回带 component=mq 的 watermill 日志适配器.
func NewLogger() watermill.LoggerAdapter {
	return &zerologAdapter{l: nlog.Component("mq")}
}

func withFields(ev *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}

	return ev
}

func (z *zerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	withFields(z.l.Error().Err(err), fields).Msg(msg)
}

func (z *zerologAdapter) Info(msg string, fields watermill.LogFields) {
	withFields(z.l.Info(), fields).Msg(msg)
}

func (z *zerologAdapter) Debug(msg string, fields watermill.LogFields) {
	withFields(z.l.Debug(), fields).Msg(msg)
}

func (z *zerologAdapter) Trace(msg string, fields watermill.LogFields) {
	withFields(z.l.Trace(), fields).Msg(msg)
}

func (z *zerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zerologAdapter{l: z.l.With().Fields(map[string]any(fields)).Logger()}
}
