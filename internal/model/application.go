package model

import (
	"fmt"
)

// Reviewable 需要审核的各类申请共有的能力
type Reviewable interface {
	IsPending() bool
	Poster() Ref
	ExtraDisplay() map[string]string
	TypeName() string
}

type ApplicationStatus int

const (
	ApplicationPending ApplicationStatus = iota
	ApplicationConfirmed
	ApplicationCanceled
	ApplicationRefused
)

func (s ApplicationStatus) String() string {
	switch s {
	case ApplicationPending:
		return "PENDING"
	case ApplicationConfirmed:
		return "CONFIRMED"
	case ApplicationCanceled:
		return "CANCELED"
	case ApplicationRefused:
		return "REFUSED"
	}
	return "UNKNOWN"
}

type ApplyType string

const (
	ApplyJoin     ApplyType = "JOIN"
	ApplyWithdraw ApplyType = "WITHDRAW"
	ApplyTransfer ApplyType = "TRANSFER"
)

func (t ApplyType) Valid() bool {
	return t == ApplyJoin || t == ApplyWithdraw || t == ApplyTransfer
}

// MembershipApplication 加入/退出/调岗申请
type MembershipApplication struct {
	Model
	PersonID  uint              `gorm:"index;not null" json:"person_id"`
	OrgID     uint              `gorm:"index;not null" json:"org_id"`
	Level     int               `json:"level"`
	Reason    string            `gorm:"type:text" json:"reason"`
	ApplyType ApplyType         `gorm:"type:varchar(16);not null" json:"apply_type"`
	Status    ApplicationStatus `gorm:"index" json:"status"`
	Year      int               `json:"year"`
	Semester  Semester          `gorm:"type:varchar(16)" json:"semester"`
	// PendingKey 仅在 PENDING 时非空，唯一索引保证同一对 (人, 组织) 最多一条待处理申请
	PendingKey *string `gorm:"type:varchar(64);uniqueIndex" json:"-"`
}

func (MembershipApplication) TableName() string {
	return "modify_position"
}

func PendingKeyOf(personID, orgID uint) *string {
	key := fmt.Sprintf("%d:%d", personID, orgID)
	return &key
}

func (a *MembershipApplication) IsPending() bool { return a.Status == ApplicationPending }
func (a *MembershipApplication) Poster() Ref     { return PersonRef(a.PersonID) }
func (a *MembershipApplication) TypeName() string {
	return "成员申请"
}

func (a *MembershipApplication) ExtraDisplay() map[string]string {
	return map[string]string{
		"apply_type": string(a.ApplyType),
		"level":      fmt.Sprint(a.Level),
		"term":       fmt.Sprintf("%d %s", a.Year, a.Semester),
	}
}

// OrganizationApplication 新建组织申请，审核流程不在本服务内
type OrganizationApplication struct {
	Model
	PersonID     uint              `gorm:"index;not null" json:"person_id"`
	OrgName      string            `gorm:"type:varchar(100);not null" json:"org_name"`
	OrgTypeID    uint              `json:"org_type_id"`
	Introduction string            `gorm:"type:text" json:"introduction"`
	Status       ApplicationStatus `json:"status"`
}

func (OrganizationApplication) TableName() string {
	return "modify_organization"
}

func (a *OrganizationApplication) IsPending() bool  { return a.Status == ApplicationPending }
func (a *OrganizationApplication) Poster() Ref      { return PersonRef(a.PersonID) }
func (a *OrganizationApplication) TypeName() string { return "新建组织申请" }
func (a *OrganizationApplication) ExtraDisplay() map[string]string {
	return map[string]string{"org_name": a.OrgName}
}

// Reimbursement 活动经费报销申请
type Reimbursement struct {
	Model
	ActivityID       uint              `gorm:"index" json:"activity_id"`
	OrgID            uint              `gorm:"index;not null" json:"org_id"`
	ExamineTeacherID uint              `json:"examine_teacher_id"`
	Amount           float64           `json:"amount"`
	Message          string            `gorm:"type:text" json:"message"`
	Status           ApplicationStatus `json:"status"`
}

func (a *Reimbursement) IsPending() bool  { return a.Status == ApplicationPending }
func (a *Reimbursement) Poster() Ref      { return OrgRef(a.OrgID) }
func (a *Reimbursement) TypeName() string { return "经费申请" }
func (a *Reimbursement) ExtraDisplay() map[string]string {
	return map[string]string{
		"activity_id": fmt.Sprint(a.ActivityID),
		"amount":      fmt.Sprintf("%.1f", a.Amount),
	}
}
