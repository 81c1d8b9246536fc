package sentry

import (
	"fmt"
	"time"

	"yqpoint-system/config"
	"yqpoint-system/internal/global/jwt"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// CodedError 带错误码的错误，只上报 5xx
type CodedError interface {
	error
	GetCode() int32
}

func Init() error {
	cfg := config.Get()
	if cfg.Sentry.Dsn == "" {
		return nil
	}

	tracesSampleRate := cfg.Sentry.SampleRate
	if tracesSampleRate <= 0 {
		tracesSampleRate = 1.0
	}
	environment := cfg.Sentry.Environment
	if environment == "" {
		environment = string(cfg.Mode)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.Dsn,
		Environment:      environment,
		Release:          "yqpoint-system@1.0.0",
		SampleRate:       1.0,
		EnableTracing:    true,
		TracesSampleRate: tracesSampleRate,
		EnableLogs:       true,
		Tags: map[string]string{
			"semester": fmt.Sprintf("%d-%s", cfg.Semester.Year, cfg.Semester.Semester),
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	return nil
}

func Middleware() gin.HandlerFunc {
	if config.Get().Sentry.Dsn == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return sentrygin.New(sentrygin.Options{
		Repanic:         true, // 交给 Recovery 中间件写响应
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// CaptureException 上报服务器内部错误并带上请求账户，业务错误不上报
func CaptureException(c *gin.Context, err error) {
	if config.Get().Sentry.Dsn == "" || !shouldReport(err) {
		return
	}
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(c.Request)
		scope.SetTag("route", c.FullPath())
		scope.SetTag("method", c.Request.Method)
		if e, ok := err.(CodedError); ok {
			scope.SetTag("error_code", fmt.Sprint(e.GetCode()))
		}
		if claims, ok := jwt.GetPayload(c); ok {
			scope.SetUser(sentry.User{
				ID:        claims.Ref().String(),
				IPAddress: c.ClientIP(),
				Data:      map[string]string{"role_id": fmt.Sprint(claims.RoleID)},
			})
		}
		hub.CaptureException(err)
	})
}

func shouldReport(err error) bool {
	if e, ok := err.(CodedError); ok {
		return e.GetCode()/100 >= 500 && e.GetCode()/100 < 600
	}
	return true
}

func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
