// Package term 学年学期。当前学期来自配置，由调用方显式传入各项操作
package term

import (
	"fmt"

	"yqpoint-system/config"
	"yqpoint-system/internal/model"

	"gorm.io/gorm"
)

type Term struct {
	Year     int            `json:"year"`
	Semester model.Semester `json:"semester"`
}

func New(year int, semester model.Semester) Term {
	return Term{Year: year, Semester: semester}
}

func Current() Term {
	s := config.Get().Semester
	return Term{Year: s.Year, Semester: model.Semester(s.Semester)}
}

func (t Term) String() string {
	return fmt.Sprintf("%d-%s", t.Year, t.Semester)
}

// Covers 记录的学年学期是否落在本学期内
func (t Term) Covers(year int, semester model.Semester) bool {
	return year == t.Year && semester.Covers(t.Semester)
}

// Scope 查询条件：学年相等且学期覆盖当前学期
func (t Term) Scope(db *gorm.DB) *gorm.DB {
	semesters := []model.Semester{t.Semester}
	if t.Semester != model.SemesterAnnual {
		semesters = append(semesters, model.SemesterAnnual)
	}
	return db.Where("year = ? AND semester IN ?", t.Year, semesters)
}
