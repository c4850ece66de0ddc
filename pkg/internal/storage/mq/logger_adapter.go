package mq

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// watermillLogger 把 watermill 的日志写入应用 logger.
// watermill 在每次订阅、重连时都打 Info，这里降为 Debug.
type watermillLogger struct {
	l zerolog.Logger
}

// NewLoggerAdapter 所有事件带 component=mq.
func NewLoggerAdapter(l *zerolog.Logger) watermill.LoggerAdapter {
	return watermillLogger{l: l.With().Str("component", "mq").Logger()}
}

func (w watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.l.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}

func (w watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.l.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (w watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.l.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (w watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.l.Trace().Fields(map[string]any(fields)).Msg(msg)
}

func (w watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{l: w.l.With().Fields(map[string]any(fields)).Logger()}
}
