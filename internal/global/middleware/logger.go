package middleware

import (
	"bytes"
	"log/slog"
	"strings"
	"time"

	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/response"

	sentrylib "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// maxBodyLog 日志中记录的响应体上限
const maxBodyLog = 4 * 1024

// bodyCapture 只缓存 JSON 响应，导出的表格等二进制内容不进日志
type bodyCapture struct {
	gin.ResponseWriter
	buf       bytes.Buffer
	truncated bool
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	if w.isJSON() {
		room := maxBodyLog - w.buf.Len()
		switch {
		case room >= len(b):
			w.buf.Write(b)
		case room > 0:
			w.buf.Write(b[:room])
			w.truncated = true
		default:
			w.truncated = true
		}
	}
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) isJSON() bool {
	return strings.HasPrefix(w.Header().Get("Content-Type"), gin.MIMEJSON)
}

func (w *bodyCapture) body() string {
	if w.truncated {
		return w.buf.String() + "...(truncated)"
	}
	return w.buf.String()
}

// Logger 记录每个请求。带上发起请求的账户，业务失败记 Warn 并附错误码
func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		w := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if payload, ok := jwt.GetPayload(c); ok {
			attrs = append(attrs, "account", payload.Ref().String())
		}
		level := slog.LevelInfo
		if v, ok := c.Get(response.ErrorContextKey); ok {
			if e, ok := v.(*response.Error); ok {
				attrs = append(attrs, "error_code", e.Code)
				level = slog.LevelWarn
			}
		}
		if w.buf.Len() > 0 {
			attrs = append(attrs, "response_body", w.body())
		}

		ctx := c.Request.Context()
		logger.WithTrace(ctx, log).Log(ctx, level, "HTTP Request", attrs...)
	}
}

// SentryEnrichIP 放在 sentry.Middleware() 之后，后续上报都带客户端 IP
func SentryEnrichIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.ConfigureScope(func(scope *sentrylib.Scope) {
				scope.SetUser(sentrylib.User{IPAddress: c.ClientIP()})
				scope.SetTag("client_ip", c.ClientIP())
				if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
					scope.SetTag("x_forwarded_for", forwarded)
				}
			})
		}
		c.Next()
	}
}

// sentryAccount 鉴权通过后把账户写进 Sentry 用户信息
func sentryAccount(c *gin.Context, claims *jwt.Claims) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		return
	}
	hub.ConfigureScope(func(scope *sentrylib.Scope) {
		scope.SetUser(sentrylib.User{ID: claims.Ref().String(), IPAddress: c.ClientIP()})
		scope.SetTag("account_kind", string(claims.AccountKind))
	})
}
