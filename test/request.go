package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type Request struct {
	Method string
	Body   any
	Query  url.Values
	Params gin.Params
	Claims *jwt.Claims // 跳过 Auth 中间件，直接注入登录信息
}

func DoRequest(t *testing.T, handlerFunc gin.HandlerFunc, request Request) (resp response.ResponseBody) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	method := request.Method
	if method == "" {
		method = http.MethodPost
	}
	var body bytes.Buffer
	if request.Body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(request.Body))
	}
	target := "/test"
	if len(request.Query) > 0 {
		target += "?" + request.Query.Encode()
	}
	c.Request = httptest.NewRequest(method, target, &body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = request.Params
	if request.Claims != nil {
		c.Set(jwt.PayloadKey, request.Claims)
	}

	handlerFunc(c)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return
}

// DecodeData 把响应中的 data 解析为具体类型
func DecodeData(t *testing.T, resp response.ResponseBody, out any) {
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

// PersonClaims 以自然人身份登录
func PersonClaims(id uint) *jwt.Claims {
	return &jwt.Claims{Payload: jwt.Payload{AccountKind: model.AccountPerson, AccountID: id, RoleID: jwt.RolePerson}}
}

// OrgClaims 以组织账号登录
func OrgClaims(id uint) *jwt.Claims {
	return &jwt.Claims{Payload: jwt.Payload{AccountKind: model.AccountOrg, AccountID: id, RoleID: jwt.RoleOrg}}
}

func AdminClaims(id uint) *jwt.Claims {
	return &jwt.Claims{Payload: jwt.Payload{AccountKind: model.AccountPerson, AccountID: id, RoleID: jwt.RoleAdmin}}
}
