package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"yqpoint-system/config"

	sentryslog "github.com/getsentry/sentry-go/slog"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	instance *slog.Logger
	once     sync.Once
)

// fanout 把同一条记录分发给文件/控制台和 Sentry
type fanout []slog.Handler

func (h fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(h))
	for i, handler := range h {
		next[i] = handler.WithAttrs(attrs)
	}
	return next
}

func (h fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(h))
	for i, handler := range h {
		next[i] = handler.WithGroup(name)
	}
	return next
}

// Get 获取全局 Logger 实例
func Get() *slog.Logger {
	once.Do(func() {
		cfg := config.Get()
		opts := &slog.HandlerOptions{
			AddSource: cfg.Mode == config.ModeRelease,
			Level:     getLogLevel(cfg.Log.Level),
		}

		var handler slog.Handler
		if cfg.Mode == config.ModeRelease && cfg.Log.FilePath != "" {
			handler = slog.NewJSONHandler(&lumberjack.Logger{
				Filename:   cfg.Log.FilePath,
				MaxSize:    cfg.Log.MaxSize,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAge:     cfg.Log.MaxAge,
				Compress:   cfg.Log.Compress,
			}, opts)
		} else {
			handler = slog.NewTextHandler(os.Stdout, opts)
		}

		if cfg.Sentry.Dsn != "" {
			sentryHandler := sentryslog.Option{
				EventLevel: []slog.Level{slog.LevelError},
				LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
				AddSource:  cfg.Mode == config.ModeRelease,
			}.NewSentryHandler(context.Background())
			handler = fanout{handler, sentryHandler}
		}

		instance = slog.New(handler).With(
			"app_name", "yqpoint-system",
			"env", string(cfg.Mode),
		)
	})
	return instance
}

// New 创建带模块字段的 Logger
func New(module string) *slog.Logger {
	return Get().With("module", module)
}

// Discard 丢弃所有输出，测试用
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithContext 附加请求方 IP，便于在 Sentry 日志里定位用户
func WithContext(base *slog.Logger, c interface {
	ClientIP() string
	GetHeader(string) string
}) *slog.Logger {
	l := base.With("client_ip", c.ClientIP())
	if forwardedFor := c.GetHeader("X-Forwarded-For"); forwardedFor != "" {
		l = l.With("x_forwarded_for", forwardedFor)
	}
	return l
}

// WithTrace 附加当前 OTel span 的 trace_id
func WithTrace(ctx context.Context, base *slog.Logger) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return base
	}
	return base.With("trace_id", sc.TraceID().String())
}

func getLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
