package position

import (
	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (p *ModulePosition) InitRouter(r *gin.RouterGroup) {
	positionGroup := r.Group("/position")

	positionGroup.Use(middleware.Auth(jwt.RolePerson))
	{
		positionGroup.GET("/members/:org_id", ListMembers)
		positionGroup.GET("/mine", ListMyPositions)
		positionGroup.GET("/application/list", ListApplications)
		positionGroup.POST("/application", CreateApplication)
		positionGroup.POST("/application/:id/cancel", CancelApplication)
	}

	// 组织账号审批本组织收到的申请
	positionGroup.Use(middleware.Auth(jwt.RoleOrg))
	{
		positionGroup.POST("/application/:id/resolve", ResolveApplication)
	}
}
