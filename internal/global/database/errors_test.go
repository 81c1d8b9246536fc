package database

import (
	"errors"
	"fmt"
	"testing"

	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil))
	assert.ErrorIs(t, Wrap(response.ErrCapacityFull), response.ErrCapacityFull)
	assert.ErrorIs(t, Wrap(fmt.Errorf("debit: %w", model.ErrNegativeBalance)), response.ErrInsufficientBalance)
	assert.ErrorIs(t, Wrap(model.ErrAccountNotFound), response.ErrNotFound)
	assert.ErrorIs(t, Wrap(gorm.ErrRecordNotFound), response.ErrNotFound)
	assert.ErrorIs(t, Wrap(gorm.ErrDuplicatedKey), response.ErrAlreadyExists)
	assert.ErrorIs(t, Wrap(errors.New("connection reset")), response.ErrDatabase)
}

func TestIsDuplicate_MySQL(t *testing.T) {
	assert.True(t, IsDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1213}))
}
