package activity

import (
	"testing"
	"time"

	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/notify"
	"yqpoint-system/internal/global/term"
	"yqpoint-system/internal/model"
	"yqpoint-system/test"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	fall = term.New(2021, model.SemesterFall)
	now  = time.Date(2021, 10, 11, 8, 0, 0, 0, time.Local)
	day  = 24 * time.Hour
)

type env struct {
	db      *gorm.DB
	svc     *Service
	rec     *notify.Recorder
	org     *model.Organization
	teacher *model.Person
}

func setup(t *testing.T) *env {
	db := test.NewDB(t)
	rec := notify.NewRecorder()
	s := NewService(db, lock.NewLocalLocker(5*time.Second), rec, logger.Discard())
	s.now = func() time.Time { return now }
	return &env{
		db:      db,
		svc:     s,
		rec:     rec,
		org:     test.CreateOrg(t, db, 0),
		teacher: test.CreateTeacher(t, db),
	}
}

// activity 直接写库构造指定状态的活动，默认明天截止报名、后天开始、持续一天
func (e *env) activity(t *testing.T, status model.ActivityStatus, opts ...func(*model.Activity)) *model.Activity {
	a := &model.Activity{
		Title:            "迎新晚会",
		OrgID:            e.org.ID,
		ExamineTeacherID: e.teacher.ID,
		Year:             fall.Year,
		Semester:         fall.Semester,
		ApplyEnd:         now.Add(day),
		Start:            now.Add(2 * day),
		End:              now.Add(3 * day),
		Capacity:         model.UnlimitedCapacity,
		Status:           status,
		Valid:            status != model.ActivityReviewing,
		PublishTime:      now.Add(-day),
	}
	for _, opt := range opts {
		opt(a)
	}
	require.NoError(t, e.db.Create(a).Error)
	return a
}

func (e *env) reload(t *testing.T, id uint) *model.Activity {
	var a model.Activity
	require.NoError(t, e.db.First(&a, id).Error)
	return &a
}

func withPrice(p float64) func(*model.Activity) {
	return func(a *model.Activity) { a.YQPoint = p }
}

func withCapacity(n int) func(*model.Activity) {
	return func(a *model.Activity) { a.Capacity = n }
}
