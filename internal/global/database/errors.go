package database

import (
	"errors"

	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const mysqlDuplicateEntry = 1062

// IsDuplicate 唯一索引冲突
func IsDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// Wrap 把存储层错误转换为业务错误码，业务错误原样返回
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var e *response.Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, model.ErrNegativeBalance):
		return response.ErrInsufficientBalance.WithOrigin(err)
	case errors.Is(err, model.ErrAccountNotFound):
		return response.ErrNotFound.WithTips("账户不存在")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return response.ErrNotFound.WithOrigin(err)
	case IsDuplicate(err):
		return response.ErrAlreadyExists.WithOrigin(err)
	}
	return response.ErrDatabase.WithOrigin(err)
}
