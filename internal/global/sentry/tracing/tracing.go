// Package tracing 把 GORM、Redis 和 resty 的调用挂到 Sentry 的性能追踪上
package tracing

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"yqpoint-system/config"

	"github.com/getsentry/sentry-go"
	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func IsEnabled() bool {
	return config.Get().Sentry.Dsn != ""
}

// finish 未超过慢阈值的 span 不上报
func finish(span *sentry.Span, elapsed, threshold time.Duration, err error) {
	if threshold > 0 && elapsed < threshold {
		span.Sampled = sentry.SampledFalse
	}
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("error", err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}

const (
	gormSpanKey  = "sentry:span"
	gormStartKey = "sentry:start"
)

// GormPlugin 为每条 SQL 创建子 span，描述只用表名
type GormPlugin struct {
	slowThreshold time.Duration
}

func NewGormPlugin() *GormPlugin {
	ms := config.Get().Sentry.Tracing.DBSlowThresholdMs
	return &GormPlugin{slowThreshold: time.Duration(ms) * time.Millisecond}
}

func (p *GormPlugin) Name() string {
	return "SentryTracingPlugin"
}

func (p *GormPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	befores := []error{
		cb.Create().Before("gorm:create").Register("sentry_tracing:before_create", p.before("db.sql.create")),
		cb.Query().Before("gorm:query").Register("sentry_tracing:before_query", p.before("db.sql.query")),
		cb.Update().Before("gorm:update").Register("sentry_tracing:before_update", p.before("db.sql.update")),
		cb.Delete().Before("gorm:delete").Register("sentry_tracing:before_delete", p.before("db.sql.delete")),
		cb.Row().Before("gorm:row").Register("sentry_tracing:before_row", p.before("db.sql.row")),
		cb.Raw().Before("gorm:raw").Register("sentry_tracing:before_raw", p.before("db.sql.raw")),
		cb.Create().After("gorm:create").Register("sentry_tracing:after_create", p.after),
		cb.Query().After("gorm:query").Register("sentry_tracing:after_query", p.after),
		cb.Update().After("gorm:update").Register("sentry_tracing:after_update", p.after),
		cb.Delete().After("gorm:delete").Register("sentry_tracing:after_delete", p.after),
		cb.Row().After("gorm:row").Register("sentry_tracing:after_row", p.after),
		cb.Raw().After("gorm:raw").Register("sentry_tracing:after_raw", p.after),
	}
	for _, err := range befores {
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *GormPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement == nil || db.Statement.Context == nil {
			return
		}
		parent := sentry.SpanFromContext(db.Statement.Context)
		if parent == nil {
			return
		}
		span := parent.StartChild(operation)
		span.Description = db.Statement.Table
		span.SetData("db.system", db.Dialector.Name())
		db.InstanceSet(gormStartKey, time.Now())
		db.InstanceSet(gormSpanKey, span)
	}
}

func (p *GormPlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(gormSpanKey)
	if !ok {
		return
	}
	span, ok := v.(*sentry.Span)
	if !ok || span == nil {
		return
	}
	start, _ := db.InstanceGet(gormStartKey)
	startTime, _ := start.(time.Time)
	span.SetData("db.rows_affected", db.RowsAffected)
	finish(span, time.Since(startTime), p.slowThreshold, db.Error)
}

// RedisHook 追踪 Redis 命令，redis.Nil 不算错误
type RedisHook struct {
	slowThreshold time.Duration
}

func NewRedisHook() *RedisHook {
	ms := config.Get().Sentry.Tracing.RedisSlowThresholdMs
	return &RedisHook{slowThreshold: time.Duration(ms) * time.Millisecond}
}

func (h *RedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *RedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		parent := sentry.SpanFromContext(ctx)
		if parent == nil {
			return next(ctx, cmd)
		}
		span := parent.StartChild("db.redis")
		span.Description = strings.ToUpper(cmd.Name())
		span.SetData("db.system", "redis")
		start := time.Now()
		err := next(span.Context(), cmd)
		if err == redis.Nil {
			finish(span, time.Since(start), h.slowThreshold, nil)
		} else {
			finish(span, time.Since(start), h.slowThreshold, err)
		}
		return err
	}
}

func (h *RedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		parent := sentry.SpanFromContext(ctx)
		if parent == nil {
			return next(ctx, cmds)
		}
		span := parent.StartChild("db.redis.pipeline")
		span.SetData("redis.pipeline_length", len(cmds))
		start := time.Now()
		err := next(span.Context(), cmds)
		finish(span, time.Since(start), h.slowThreshold, err)
		return err
	}
}

// SetupResty 为外呼请求创建 span 并透传 sentry-trace 头
func SetupResty(client *resty.Client) {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		parent := sentry.SpanFromContext(req.Context())
		if parent == nil {
			return nil
		}
		span := parent.StartChild("http.client")
		span.Description = req.Method + " " + sanitizeURL(req.URL)
		req.SetHeader("sentry-trace", span.ToSentryTrace())
		if baggage := span.ToBaggage(); baggage != "" {
			req.SetHeader("baggage", baggage)
		}
		req.SetContext(span.Context())
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		span := sentry.SpanFromContext(resp.Request.Context())
		if span == nil {
			return nil
		}
		span.SetData("http.response.status_code", resp.StatusCode())
		span.Status = sentry.HTTPtoSpanStatus(resp.StatusCode())
		span.Finish()
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		if req == nil {
			return
		}
		if span := sentry.SpanFromContext(req.Context()); span != nil {
			span.Status = sentry.SpanStatusInternalError
			span.SetData("http.error", err.Error())
			span.Finish()
		}
	})
}

// sanitizeURL 去掉查询参数，避免 token 等进入 span
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Scheme + "://" + u.Host + u.Path
}
