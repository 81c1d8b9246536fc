package account

import (
	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

// InitRouter 账号信息，登录由外部认证服务完成
func (u *ModuleAccount) InitRouter(r *gin.RouterGroup) {
	accountGroup := r.Group("/account")

	accountGroup.Use(middleware.Auth(jwt.RolePerson))
	{
		accountGroup.GET("/me", GetMe)
	}
}
