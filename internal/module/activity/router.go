package activity

import (
	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (p *ModuleActivity) InitRouter(r *gin.RouterGroup) {
	activityGroup := r.Group("/activity")

	activityGroup.Use(middleware.Auth(jwt.RolePerson))
	{
		activityGroup.GET("/list", ListActivities)
		activityGroup.GET("/:id", GetActivity)
		activityGroup.GET("/:id/participants", ListParticipants)
		activityGroup.POST("/:id/register", Register)
		activityGroup.POST("/:id/withdraw", Withdraw)
		// 审核老师
		activityGroup.POST("/:id/review", Review)
	}

	orgGroup := activityGroup.Group("")
	orgGroup.Use(middleware.Auth(jwt.RoleOrg))
	{
		orgGroup.POST("", CreateActivity)
		orgGroup.PUT("/:id", UpdateActivity)
		orgGroup.POST("/:id/abort", Abort)
		orgGroup.POST("/:id/cancel", Cancel)
	}

	adminGroup := activityGroup.Group("")
	adminGroup.Use(middleware.Auth(jwt.RoleAdmin))
	{
		adminGroup.POST("/:id/advance", Advance)
		// 外部定时任务入口
		adminGroup.POST("/advance-all", AdvanceAll)
	}
}
