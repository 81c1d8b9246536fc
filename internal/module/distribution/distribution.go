package distribution

import (
	"strconv"
	"time"

	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"

	"github.com/gin-gonic/gin"
)

type CreatePolicyReq struct {
	Type         model.DistributionType `json:"type"`
	PerPersonCap float64                `json:"per_person_cap"`
	PerOrgCap    float64                `json:"per_org_cap"`
	PersonPool   float64                `json:"person_pool"`
	OrgPool      float64                `json:"org_pool"`
	StartTime    time.Time              `json:"start_time"`
	Active       bool                   `json:"active"`
}

type ListPoliciesReq struct {
	Active bool `form:"active"`
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, response.ErrInvalidRequest.WithTips("id 无效"))
		return 0, false
	}
	return uint(id), true
}

func CreatePolicy(c *gin.Context) {
	var req CreatePolicyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("绑定发放规则失败", "error", err)
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	p, err := svc.CreatePolicy(c.Request.Context(), PolicyInput(req))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, p)
}

func ListPolicies(c *gin.Context) {
	var req ListPoliciesReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	policies, err := svc.Policies(c.Request.Context(), req.Active)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, policies)
}

func ActivatePolicy(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := svc.ActivatePolicy(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, p)
}

func DeactivatePolicy(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := svc.DeactivatePolicy(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, p)
}

func RunPolicy(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	result, err := svc.RunDistribution(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

func RunDue(c *gin.Context) {
	results, err := svc.RunDue(c.Request.Context(), svc.now())
	if err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	response.Success(c, results)
}
