package distribution

import (
	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (p *ModuleDistribution) InitRouter(r *gin.RouterGroup) {
	distributionGroup := r.Group("/distribution")

	distributionGroup.Use(middleware.Auth(jwt.RoleAdmin))
	{
		distributionGroup.GET("/policy/list", ListPolicies)
		distributionGroup.POST("/policy", CreatePolicy)
		distributionGroup.POST("/policy/:id/activate", ActivatePolicy)
		distributionGroup.POST("/policy/:id/deactivate", DeactivatePolicy)
		distributionGroup.POST("/policy/:id/run", RunPolicy)
		// 外部定时任务入口
		distributionGroup.POST("/run-due", RunDue)
	}
}
