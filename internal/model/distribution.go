package model

import "time"

type DistributionType int

const (
	DistributeTemporary DistributionType = 0
	DistributeWeekly    DistributionType = 1
	DistributeBiweekly  DistributionType = 2
	DistributeSemester  DistributionType = 26
)

func (t DistributionType) Valid() bool {
	switch t {
	case DistributeTemporary, DistributeWeekly, DistributeBiweekly, DistributeSemester:
		return true
	}
	return false
}

// Interval 周期分发的间隔，临时分发为 0
func (t DistributionType) Interval() time.Duration {
	const week = 7 * 24 * time.Hour
	switch t {
	case DistributeWeekly:
		return week
	case DistributeBiweekly:
		return 2 * week
	case DistributeSemester:
		return 26 * week
	}
	return 0
}

// DistributionPolicy 元气值发放规则，每种类型同时最多一条生效
type DistributionPolicy struct {
	Model
	Type         DistributionType `gorm:"index" json:"type"`
	PerPersonCap float64          `json:"per_person_cap"` // 余额低于该值的个人才能领取
	PerOrgCap    float64          `json:"per_org_cap"`
	PersonPool   float64          `json:"person_pool"`
	OrgPool      float64          `json:"org_pool"`
	StartTime    time.Time        `json:"start_time"`
	Active       bool             `gorm:"index" json:"active"`
	LastRunAt    *time.Time       `json:"last_run_at,omitempty"`
}

func (DistributionPolicy) TableName() string {
	return "yq_point_distribute"
}

// DistributionRun 一次发放。入账前先落库全部明细，中断后按明细续跑
type DistributionRun struct {
	Model
	PolicyID    uint       `gorm:"index" json:"policy_id"`
	PersonCount int        `json:"person_count"`
	OrgCount    int        `json:"org_count"`
	PersonShare float64    `json:"person_share"`
	OrgShare    float64    `json:"org_share"`
	FinishedAt  *time.Time `gorm:"index" json:"finished_at,omitempty"`
}

// DistributionCredit 一次发放中单个账户的入账明细，CreditedAt 非空即已入账
type DistributionCredit struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	RunID       uint        `gorm:"uniqueIndex:idx_run_account" json:"run_id"`
	AccountKind AccountKind `gorm:"type:varchar(10);uniqueIndex:idx_run_account" json:"account_kind"`
	AccountID   uint        `gorm:"uniqueIndex:idx_run_account" json:"account_id"`
	Amount      float64     `json:"amount"`
	CreditedAt  *time.Time  `json:"credited_at,omitempty"`
}

func (c *DistributionCredit) Ref() Ref {
	return Ref{Kind: c.AccountKind, ID: c.AccountID}
}
