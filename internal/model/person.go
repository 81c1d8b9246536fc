package model

import "gorm.io/gorm"

type Identity int

const (
	IdentityTeacher Identity = iota
	IdentityStudent
)

type PersonStatus int

const (
	PersonActive PersonStatus = iota
	PersonGraduated
)

type Person struct {
	Model
	StudentID  string       `gorm:"type:varchar(20);uniqueIndex;not null" json:"student_id"` // 学号/工号
	Name       string       `gorm:"type:varchar(20);not null" json:"name"`
	Identity   Identity     `json:"identity"`
	YQPoint    float64      `gorm:"column:yq_point" json:"yq_point"`
	Quota      float64      `json:"quota"` // 分发额度参考
	BonusPoint float64      `json:"bonus_point"`
	Status     PersonStatus `json:"status"`
}

func (Person) TableName() string {
	return "natural_person"
}

func (p *Person) BeforeSave(*gorm.DB) error {
	p.YQPoint = RoundPoint(p.YQPoint)
	p.BonusPoint = RoundPoint(p.BonusPoint)
	return nil
}

func (p *Person) Ref() Ref {
	return PersonRef(p.ID)
}
