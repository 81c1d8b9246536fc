package model

import (
	"time"

	"gorm.io/gorm"
)

type Model struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *Model) CreateTime() int64 {
	return m.CreatedAt.UnixMilli()
}

func (m *Model) UpdateTime() int64 {
	return m.UpdatedAt.UnixMilli()
}

type Dto struct {
	ID         uint  `json:"id"`
	CreateTime int64 `json:"create_time"`
	UpdateTime int64 `json:"update_time"`
}

// All 需要自动迁移的模型
func All() []any {
	return []any{
		&Person{},
		&OrganizationType{},
		&Organization{},
		&Position{},
		&MembershipApplication{},
		&OrganizationApplication{},
		&Reimbursement{},
		&TransferRecord{},
		&DistributionPolicy{},
		&DistributionRun{},
		&DistributionCredit{},
		&Activity{},
		&Participant{},
	}
}
