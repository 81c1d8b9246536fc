package account

import (
	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"

	"github.com/gin-gonic/gin"
)

// Profile 当前登录账号的基本信息与元气值余额
type Profile struct {
	Ref     model.Ref `json:"ref"`
	Name    string    `json:"name"`
	RoleID  int       `json:"role_id"`
	YQPoint float64   `json:"yq_point"`
	Active  bool      `json:"active"`
}

func GetMe(c *gin.Context) {
	payload, ok := jwt.GetPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	profile := Profile{Ref: payload.Ref(), RoleID: payload.RoleID}

	var err error
	switch payload.AccountKind {
	case model.AccountPerson:
		var p model.Person
		if err = db.WithContext(c.Request.Context()).First(&p, payload.AccountID).Error; err == nil {
			profile.Name, profile.YQPoint, profile.Active = p.Name, p.YQPoint, p.Status == model.PersonActive
		}
	case model.AccountOrg:
		var o model.Organization
		if err = db.WithContext(c.Request.Context()).First(&o, payload.AccountID).Error; err == nil {
			profile.Name, profile.YQPoint, profile.Active = o.Name, o.YQPoint, o.Active()
		}
	default:
		response.Fail(c, response.ErrTokenInvalid)
		return
	}
	if err != nil {
		log.Error("查询账号失败", "error", err, "account", profile.Ref.String())
		response.Fail(c, database.Wrap(err))
		return
	}
	response.Success(c, profile)
}
