package model

type Semester string

const (
	SemesterFall   Semester = "Fall"
	SemesterSpring Semester = "Spring"
	SemesterAnnual Semester = "Fall+Spring"
)

// Covers 全年记录覆盖两个学期
func (s Semester) Covers(other Semester) bool {
	if s == other {
		return true
	}
	return s == SemesterAnnual && (other == SemesterFall || other == SemesterSpring)
}

const DefaultLevel = 10

type PositionStatus int

const (
	PositionInService PositionStatus = iota
	PositionDepart
)

type Position struct {
	Model
	PersonID uint           `gorm:"index;not null" json:"person_id"`
	Person   *Person        `gorm:"foreignKey:PersonID" json:"person,omitempty"`
	OrgID    uint           `gorm:"index;not null" json:"org_id"`
	Org      *Organization  `gorm:"foreignKey:OrgID" json:"org,omitempty"`
	Level    int            `json:"level"` // 0 为最高职位
	Year     int            `gorm:"index" json:"year"`
	Semester Semester       `gorm:"type:varchar(16)" json:"semester"`
	Status   PositionStatus `json:"status"`
	ShowPost bool           `json:"show_post"`
}

func (p *Position) InService() bool {
	return p.Status == PositionInService
}
