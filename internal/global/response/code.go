package response

var (
	ErrInvalidRequest     = newError(40000, "请求参数错误")
	ErrNonPositiveAmount  = newError(40001, "转账数额必须为正")
	ErrInvalidTransfer    = newError(40002, "职位变更只能申请更高的职位")
	ErrInvalidSchedule    = newError(40003, "活动时间需满足 报名截止 < 开始 < 结束")
	ErrActivityLocked     = newError(40004, "当前活动状态不允许修改")
	ErrBiddingPriceLocked = newError(40005, "投点竞价活动不允许修改价格")
	ErrCapacityTooSmall   = newError(40006, "活动容量不能低于已报名人数")
	ErrInvalidDecision    = newError(40007, "无效的处理决定")

	ErrUnauthorized = newError(40100, "未登录")
	ErrTokenInvalid = newError(40101, "Token 无效")

	ErrInsufficientBalance = newError(40200, "元气值不足")

	ErrForbidden = newError(40300, "无权限")

	ErrNotFound      = newError(40400, "记录不存在")
	ErrNotMember     = newError(40401, "不是该组织的在职成员")
	ErrNotRegistered = newError(40402, "未报名该活动")

	ErrAlreadyExists      = newError(40900, "记录已存在")
	ErrDuplicatePending   = newError(40901, "已有正在处理中的申请")
	ErrDuplicateActive    = newError(40902, "已是该组织的在职成员")
	ErrAlreadyResolved    = newError(40903, "申请已被处理")
	ErrAlreadySettled     = newError(40904, "转账已被处理")
	ErrCapacityFull       = newError(40905, "活动报名人数已满")
	ErrRegistrationClosed = newError(40906, "活动当前不在报名阶段")
	ErrAlreadyRegistered  = newError(40907, "已报名该活动")

	ErrDatabase       = newError(50000, "数据库错误")
	ErrServerInternal = newError(50001, "服务器内部错误")

	ErrLockTimeout = newError(50300, "操作繁忙，请稍后重试")
)
