package response

import (
	"errors"
	"fmt"
	"net/http"

	"yqpoint-system/config"
	"yqpoint-system/internal/global/sentry"

	"github.com/gin-gonic/gin"
)

type ResponseBody struct {
	Code   int32  `json:"code"`
	Msg    string `json:"msg"`
	Origin string `json:"origin,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data ...any) {
	body := ResponseBody{Code: 200, Msg: "success"}
	if len(data) > 0 {
		body.Data = data[0]
	}
	c.JSON(http.StatusOK, body)
}

// Fail 写出错误响应；非 *Error 的错误按服务器内部错误处理
func Fail(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = ErrServerInternal.WithOrigin(err)
	}
	c.Set(ErrorContextKey, e)

	body := ResponseBody{Code: e.Code, Msg: e.Message}
	if config.Get().Mode == config.ModeDebug {
		body.Origin = e.Origin
	}
	if e.HTTPStatus() >= http.StatusInternalServerError {
		sentry.CaptureException(c, e)
	}
	c.AbortWithStatusJSON(e.HTTPStatus(), body)
}

func Recovery(c *gin.Context) {
	if r := recover(); r != nil {
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("%v", r)
		}
		Fail(c, ErrServerInternal.WithOrigin(err))
	}
}
