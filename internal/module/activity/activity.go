package activity

import (
	"strconv"
	"time"

	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/global/term"
	"yqpoint-system/internal/model"

	"github.com/gin-gonic/gin"
)

type CreateActivityReq struct {
	Title            string            `json:"title" binding:"required,max=50"`
	ExamineTeacherID uint              `json:"examine_teacher_id" binding:"required"`
	EndBefore        model.EndBefore   `json:"end_before"`
	ApplyEnd         *time.Time        `json:"apply_end"`
	Start            time.Time         `json:"start" binding:"required"`
	End              time.Time         `json:"end" binding:"required"`
	Location         string            `json:"location" binding:"max=200"`
	Introduction     string            `json:"introduction"`
	Capacity         int               `json:"capacity" binding:"required"` // -1 表示不限人数
	YQPoint          float64           `json:"yq_point"`
	Budget           float64           `json:"budget"`
	Bidding          bool              `json:"bidding"`
	Source           model.PointSource `json:"source"`
}

// UpdateActivityReq 使用指针类型支持部分更新
type UpdateActivityReq struct {
	Title        *string    `json:"title"`
	Location     *string    `json:"location"`
	Introduction *string    `json:"introduction"`
	Capacity     *int       `json:"capacity"`
	YQPoint      *float64   `json:"yq_point"`
	ApplyEnd     *time.Time `json:"apply_end"`
	Start        *time.Time `json:"start"`
	End          *time.Time `json:"end"`
}

type ReviewReq struct {
	Approve bool `json:"approve"`
}

type ListActivitiesReq struct {
	OrgID    uint                 `form:"org_id"`
	Status   model.ActivityStatus `form:"status"`
	Title    string               `form:"title"` // 模糊查询
	Page     int                  `form:"page"`
	PageSize int                  `form:"page_size"`
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, response.ErrInvalidRequest.WithTips("活动 id 无效"))
		return 0, false
	}
	return uint(id), true
}

// account 当前登录账号，kind 不匹配时返回 403
func account(c *gin.Context, kind model.AccountKind) (uint, bool) {
	payload, ok := jwt.GetPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return 0, false
	}
	if payload.AccountKind != kind {
		response.Fail(c, response.ErrForbidden.WithTips("账号类型不符"))
		return 0, false
	}
	return payload.AccountID, true
}

func CreateActivity(c *gin.Context) {
	orgID, ok := account(c, model.AccountOrg)
	if !ok {
		return
	}
	var req CreateActivityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("绑定创建活动请求失败", "error", err)
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	a, err := svc.CreateActivity(c.Request.Context(), term.Current(), orgID, Input(req))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, a)
}

func UpdateActivity(c *gin.Context) {
	orgID, ok := account(c, model.AccountOrg)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req UpdateActivityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("绑定更新活动请求失败", "error", err, "id", id)
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	a, err := svc.Update(c.Request.Context(), id, orgID, Patch(req))
	if err != nil {
		response.Fail(c, err)
		return
	}
	log.Info("活动更新成功", "id", a.ID, "title", a.Title)
	response.Success(c, a)
}

func Review(c *gin.Context) {
	teacherID, ok := account(c, model.AccountPerson)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req ReviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	a, err := svc.Review(c.Request.Context(), id, teacherID, req.Approve)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, a)
}

func Abort(c *gin.Context) {
	orgID, ok := account(c, model.AccountOrg)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	a, err := svc.Abort(c.Request.Context(), id, orgID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, a)
}

func Cancel(c *gin.Context) {
	orgID, ok := account(c, model.AccountOrg)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	a, err := svc.Cancel(c.Request.Context(), id, orgID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, a)
}

func Register(c *gin.Context) {
	personID, ok := account(c, model.AccountPerson)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := svc.Register(c.Request.Context(), id, personID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, p)
}

func Withdraw(c *gin.Context) {
	personID, ok := account(c, model.AccountPerson)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := svc.Withdraw(c.Request.Context(), id, personID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, p)
}

func GetActivity(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	a, err := svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, a)
}

func ListParticipants(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	participants, err := svc.Participants(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, participants)
}

// ListActivities 获取活动列表（支持查询参数）
func ListActivities(c *gin.Context) {
	var req ListActivitiesReq
	if err := c.ShouldBindQuery(&req); err != nil {
		log.Warn("绑定查询参数失败", "error", err)
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	f := ListFilter(req)
	activities, total, err := svc.Activities(c.Request.Context(), f)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 10
	}
	response.Success(c, map[string]any{
		"activities":  activities,
		"total":       total,
		"page":        f.Page,
		"page_size":   f.PageSize,
		"total_pages": (total + int64(f.PageSize) - 1) / int64(f.PageSize),
	})
}

func Advance(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	a, changed, err := svc.Advance(c.Request.Context(), id, svc.now())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"activity": a, "changed": changed})
}

func AdvanceAll(c *gin.Context) {
	changed, err := svc.AdvanceAll(c.Request.Context(), term.Current(), svc.now())
	if err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	response.Success(c, gin.H{"changed": changed})
}
