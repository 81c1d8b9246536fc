package transfer

import (
	"strconv"

	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"
	"yqpoint-system/tools"

	"github.com/gin-gonic/gin"
)

type ProposeReq struct {
	Recipient  model.Ref `json:"recipient" binding:"required"`
	Amount     float64   `json:"amount"`
	Message    string    `json:"message" binding:"max=255"`
	ActivityID *uint     `json:"activity_id"`
}

type SettleReq struct {
	Decision Decision `json:"decision" binding:"required"`
}

type ListReq struct {
	Direction Direction `form:"direction"`
	Status    *int      `form:"status"`
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, response.ErrInvalidRequest.WithTips("id 无效"))
		return 0, false
	}
	return uint(id), true
}

func currentAccount(c *gin.Context) (model.Ref, bool) {
	payload, ok := jwt.GetPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return model.Ref{}, false
	}
	return payload.Ref(), true
}

func ProposeTransfer(c *gin.Context) {
	me, ok := currentAccount(c)
	if !ok {
		return
	}
	var req ProposeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("绑定转账请求失败", "error", err)
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	rec, err := svc.ProposeTransfer(c.Request.Context(), me, req.Recipient, req.Amount, req.Message, req.ActivityID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, rec)
}

func SettleTransfer(c *gin.Context) {
	me, ok := currentAccount(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req SettleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	// 只有接收方能处理
	rec, err := svc.load(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if rec.Recipient() != me {
		response.Fail(c, response.ErrForbidden.WithTips("只能处理发给自己的转账"))
		return
	}

	rec, err = svc.SettleTransfer(c.Request.Context(), id, req.Decision)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, rec)
}

func CancelTransfer(c *gin.Context) {
	me, ok := currentAccount(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	rec, err := svc.CancelTransfer(c.Request.Context(), id, me)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, rec)
}

func ListRecords(c *gin.Context) {
	me, ok := currentAccount(c)
	if !ok {
		return
	}
	var req ListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	f := RecordFilter{Direction: req.Direction}
	if req.Status != nil {
		status := model.TransferStatus(*req.Status)
		f.Status = &status
	}
	records, err := svc.Records(c.Request.Context(), me, f)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, records)
}

// ExportRecords download=true 时直接返回文件，否则返回存储地址
func ExportRecords(c *gin.Context) {
	me, ok := currentAccount(c)
	if !ok {
		return
	}
	result, err := svc.Export(c.Request.Context(), me)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if c.Query("download") == "true" || result.URL == "" {
		tools.SendBytes(c, result.Data, result.Filename, tools.ExcelContentType)
		return
	}
	response.Success(c, result)
}
