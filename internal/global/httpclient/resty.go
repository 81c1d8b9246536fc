package httpclient

import (
	"time"

	"yqpoint-system/internal/global/sentry/tracing"

	"github.com/go-resty/resty/v2"
)

var Client *resty.Client

func Init() {
	Client = New()
}

// New 带超时、重试和 Sentry 追踪的 resty 客户端
func New() *resty.Client {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	if tracing.IsEnabled() {
		tracing.SetupResty(client)
	}
	return client
}
