package model

import (
	"time"

	"gorm.io/gorm"
)

type ActivityStatus string

const (
	ActivityReviewing   ActivityStatus = "REVIEWING"
	ActivityAbort       ActivityStatus = "ABORT"
	ActivityReject      ActivityStatus = "REJECT"
	ActivityCanceled    ActivityStatus = "CANCELED"
	ActivityApplying    ActivityStatus = "APPLYING"
	ActivityWaiting     ActivityStatus = "WAITING"
	ActivityProgressing ActivityStatus = "PROGRESSING"
	ActivityEnd         ActivityStatus = "END"
)

// Terminal 终态不再随时间推进
func (s ActivityStatus) Terminal() bool {
	switch s {
	case ActivityCanceled, ActivityAbort, ActivityReject, ActivityEnd:
		return true
	}
	return false
}

// EndBefore 报名截止距开始的提前量
type EndBefore int

const (
	EndBeforeOneHour EndBefore = iota
	EndBeforeOneDay
	EndBeforeThreeDays
	EndBeforeOneWeek
)

func (e EndBefore) Duration() time.Duration {
	switch e {
	case EndBeforeOneDay:
		return 24 * time.Hour
	case EndBeforeThreeDays:
		return 72 * time.Hour
	case EndBeforeOneWeek:
		return 168 * time.Hour
	}
	return time.Hour
}

type PointSource int

const (
	SourceCollege PointSource = iota
	SourceStudent
)

const UnlimitedCapacity = -1

type Activity struct {
	Model
	Title               string         `gorm:"type:varchar(50);not null" json:"title"`
	OrgID               uint           `gorm:"index;not null" json:"org_id"`
	ExamineTeacherID    uint           `json:"examine_teacher_id"`
	Year                int            `gorm:"index" json:"year"`
	Semester            Semester       `gorm:"type:varchar(16)" json:"semester"`
	EndBefore           EndBefore      `json:"end_before"`
	ApplyEnd            time.Time      `json:"apply_end"`
	Start               time.Time      `json:"start"`
	End                 time.Time      `json:"end"`
	Location            string         `gorm:"type:varchar(200)" json:"location"`
	Introduction        string         `gorm:"type:text" json:"introduction"`
	Capacity            int            `json:"capacity"` // UnlimitedCapacity 表示不限
	CurrentParticipants int            `json:"current_participants"`
	YQPoint             float64        `gorm:"column:yq_point" json:"yq_point"` // 报名价格
	Budget              float64        `json:"budget"`
	Bidding             bool           `json:"bidding"` // 投点竞价
	Source              PointSource    `json:"source"`
	Valid               bool           `json:"valid"` // 已通过审核
	Status              ActivityStatus `gorm:"type:varchar(16);index" json:"status"`
	PublishTime         time.Time      `json:"publish_time"`
}

func (a *Activity) BeforeSave(*gorm.DB) error {
	a.YQPoint = RoundPoint(a.YQPoint)
	return nil
}

func (a *Activity) HasRoom() bool {
	return a.Capacity == UnlimitedCapacity || a.CurrentParticipants < a.Capacity
}

func (a *Activity) OrgRef() Ref {
	return OrgRef(a.OrgID)
}

func (a *Activity) LockKey() string {
	return "activity:" + itoa(a.ID)
}

type ParticipantStatus string

const (
	ParticipantApplying     ParticipantStatus = "APPLYING"
	ParticipantApplyFailed  ParticipantStatus = "APPLY_FAILED"
	ParticipantApplySuccess ParticipantStatus = "APPLY_SUCCESS"
	ParticipantAttended     ParticipantStatus = "ATTENDED"
	ParticipantUnattended   ParticipantStatus = "UNATTENDED"
	ParticipantCanceled     ParticipantStatus = "CANCELED"
)

type Participant struct {
	Model
	ActivityID uint              `gorm:"index;not null" json:"activity_id"`
	PersonID   uint              `gorm:"index;not null" json:"person_id"`
	Status     ParticipantStatus `gorm:"type:varchar(16)" json:"status"`
	Paid       float64           `json:"paid"` // 报名时扣除的元气值，退出时原额退回
	// LiveKey 有效报名期间为 "活动:人"，取消后置空
	LiveKey *string `gorm:"type:varchar(64);uniqueIndex" json:"-"`
}

func LiveKeyOf(activityID, personID uint) *string {
	key := itoa(activityID) + ":" + itoa(personID)
	return &key
}
