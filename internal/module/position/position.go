package position

import (
	"strconv"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/global/term"
	"yqpoint-system/internal/model"

	"github.com/gin-gonic/gin"
)

type CreateApplicationReq struct {
	OrgID     uint            `json:"org_id" binding:"required"`
	ApplyType model.ApplyType `json:"apply_type" binding:"required"`
	Level     *int            `json:"level"` // 不填时加入为普通成员
	Reason    string          `json:"reason"`
}

type ResolveApplicationReq struct {
	Decision Decision `json:"decision" binding:"required"`
}

type ListApplicationsReq struct {
	OrgID  uint `form:"org_id"`
	Status *int `form:"status"`
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, response.ErrInvalidRequest.WithTips(name+" 无效"))
		return 0, false
	}
	return uint(id), true
}

// personOnly 当前登录的自然人
func personOnly(c *gin.Context) (*jwt.Claims, bool) {
	payload, ok := jwt.GetPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return nil, false
	}
	if payload.AccountKind != model.AccountPerson {
		response.Fail(c, response.ErrForbidden.WithTips("仅限个人账号"))
		return nil, false
	}
	return payload, true
}

func CreateApplication(c *gin.Context) {
	payload, ok := personOnly(c)
	if !ok {
		return
	}
	var req CreateApplicationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("绑定成员申请请求失败", "error", err)
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	level := model.DefaultLevel
	if req.Level != nil {
		level = *req.Level
	}

	applyType, app, err := svc.CreateApplication(c.Request.Context(), term.Current(), payload.AccountID, req.OrgID, req.ApplyType, level, req.Reason)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"apply_type":  applyType,
		"application": app,
	})
}

func ResolveApplication(c *gin.Context) {
	payload, ok := jwt.GetPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ResolveApplicationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	ctx := c.Request.Context()
	if payload.RoleID < jwt.RoleAdmin {
		app, err := svc.load(ctx, id)
		if err != nil {
			response.Fail(c, err)
			return
		}
		if payload.Ref() != model.OrgRef(app.OrgID) {
			response.Fail(c, response.ErrForbidden.WithTips("只能审批本组织的申请"))
			return
		}
	}

	app, err := svc.ResolveApplication(ctx, id, req.Decision)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, app)
}

func CancelApplication(c *gin.Context) {
	payload, ok := personOnly(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	app, err := svc.CancelApplication(c.Request.Context(), id, payload.AccountID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, app)
}

func ListApplications(c *gin.Context) {
	payload, ok := jwt.GetPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	var req ListApplicationsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	var f Filter
	switch payload.AccountKind {
	case model.AccountOrg:
		f.OrgID = payload.AccountID
	default:
		f.PersonID = payload.AccountID
		f.OrgID = req.OrgID
	}
	var status *model.ApplicationStatus
	if req.Status != nil {
		s := model.ApplicationStatus(*req.Status)
		status = &s
	}

	apps, err := svc.Applications(c.Request.Context(), f, status)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, apps)
}

func ListMembers(c *gin.Context) {
	orgID, ok := idParam(c, "org_id")
	if !ok {
		return
	}
	members, err := svc.Store().Members(c.Request.Context(), term.Current(), orgID)
	if err != nil {
		response.Fail(c, database.Wrap(err))
		return
	}
	response.Success(c, members)
}

func ListMyPositions(c *gin.Context) {
	payload, ok := personOnly(c)
	if !ok {
		return
	}
	positions, err := svc.Store().ActivePositions(c.Request.Context(), term.Current(), Filter{PersonID: payload.AccountID})
	if err != nil {
		response.Fail(c, database.Wrap(err))
		return
	}
	response.Success(c, positions)
}
