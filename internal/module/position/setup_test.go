package position

import (
	"testing"
	"time"

	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/notify"
	"yqpoint-system/internal/global/term"
	"yqpoint-system/internal/model"
	"yqpoint-system/test"

	"gorm.io/gorm"
)

var fall = term.New(2021, model.SemesterFall)

type env struct {
	db  *gorm.DB
	svc *Service
	rec *notify.Recorder
}

func setup(t *testing.T) *env {
	db := test.NewDB(t)
	rec := notify.NewRecorder()
	return &env{
		db:  db,
		svc: NewService(db, lock.NewLocalLocker(5*time.Second), rec, logger.Discard()),
		rec: rec,
	}
}

func (e *env) count(t *testing.T, query string, args ...any) int64 {
	var n int64
	if err := e.db.Model(&model.MembershipApplication{}).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}
