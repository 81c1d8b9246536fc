package middleware

import (
	"strings"

	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/response"

	"github.com/gin-gonic/gin"
)

func Auth(minRoleID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.ErrUnauthorized)
			return
		}

		payload, valid := jwt.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if !valid {
			response.Fail(c, response.ErrTokenInvalid)
			return
		}
		if payload.RoleID < minRoleID {
			response.Fail(c, response.ErrForbidden)
			return
		}
		c.Set(jwt.PayloadKey, payload)
		sentryAccount(c, payload)
		c.Next()
	}
}
