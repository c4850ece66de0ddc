// Package log 提供基于 zerolog 的日志工具，支持 stderr 控制台和文件输出（lumberjack 轮转）.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/simholt/hyrax/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 初始化全局 logger.
func Init() {
	initOnce.Do(initLogger)
}

// initLogger 实际执行一次的初始化函数.
func initLogger() {
	cfg := configs.GetConfig()
	logger = build(cfg.Log, cfg.Server.Debug, os.Stderr)
	log.Logger = logger

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

// build 按配置构造 logger，console 为人类可读输出目标.
func build(logCfg configs.LogConfig, debug bool, console io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(logCfg.Level))
	if err != nil || logCfg.Level == "" {
		if logCfg.Level != "" {
			fmt.Fprintf(os.Stderr, "invalid log level %q, defaulting to info\n", logCfg.Level)
		}

		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	writers := []io.Writer{
		zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = console
			w.TimeFormat = time.Kitchen
		}),
	}

	if logCfg.EnableFile {
		writers = append(writers, &lumberjack.Logger{
			Filename:   logCfg.FilePath,
			MaxSize:    logCfg.MaxSize,
			MaxBackups: logCfg.MaxBackups,
			MaxAge:     logCfg.MaxAge,
			Compress:   logCfg.Compress,
		})
	}

	zctx := zerolog.New(io.MultiWriter(writers...)).With()
	if debug {
		zctx = zctx.Caller().Stack()
	}

	return zctx.Timestamp().Logger()
}

// Logger 返回全局 logger.
func Logger() *zerolog.Logger {
	// ensure logger is initialized on first use
	initOnce.Do(initLogger)

	return &logger
}

// Component 返回带 component 字段的子 logger，例如 aggregator、indexer.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// FromContext 返回附带 trace_id/span_id 的 logger；ctx 中没有有效 span 时返回全局 logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if ctx == nil {
		return l
	}

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}

	child := l.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()

	return &child
}

// GinWriter 把 Gin 文本行转发为 zerolog 事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

// NewGinWriter 创建按固定级别输出的 GinWriter.
func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	switch w.level {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		w.logger.Error().Msg(msg)
	case zerolog.WarnLevel:
		w.logger.Warn().Msg(msg)
	default:
		w.logger.Info().Msg(msg)
	}

	return len(p), nil
}
