package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultJobName 超出职位名单的等级统一显示为成员
const DefaultJobName = "成员"

type OrganizationType struct {
	Model
	Name     string                      `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	JobNames datatypes.JSONSlice[string] `gorm:"type:json" json:"job_names"` // 下标即职位等级，0 为最高
}

func (t *OrganizationType) LevelName(level int) string {
	if level < 0 || level >= len(t.JobNames) {
		return DefaultJobName
	}
	return t.JobNames[level]
}

// LevelOf 找不到名称时返回名单长度，即普通成员等级
func (t *OrganizationType) LevelOf(name string) int {
	for i, n := range t.JobNames {
		if n == name {
			return i
		}
	}
	return len(t.JobNames)
}

type OrgStatus int

const (
	OrgActive OrgStatus = iota
	OrgRetired
)

type Organization struct {
	Model
	Name    string            `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	TypeID  uint              `gorm:"index" json:"type_id"`
	Type    *OrganizationType `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	Status  OrgStatus         `json:"status"`
	YQPoint float64           `gorm:"column:yq_point" json:"yq_point"`
}

func (o *Organization) BeforeSave(*gorm.DB) error {
	o.YQPoint = RoundPoint(o.YQPoint)
	return nil
}

func (o *Organization) Active() bool {
	return o.Status == OrgActive
}

func (o *Organization) Ref() Ref {
	return OrgRef(o.ID)
}
