package test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"yqpoint-system/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seq atomic.Int64

func CreatePerson(t *testing.T, db *gorm.DB, balance float64) *model.Person {
	n := seq.Add(1)
	p := &model.Person{
		StudentID: fmt.Sprintf("2021%06d", n),
		Name:      fmt.Sprintf("同学%d", n),
		Identity:  model.IdentityStudent,
		YQPoint:   balance,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func CreateTeacher(t *testing.T, db *gorm.DB) *model.Person {
	p := CreatePerson(t, db, 0)
	require.NoError(t, db.Model(p).Update("identity", model.IdentityTeacher).Error)
	p.Identity = model.IdentityTeacher
	return p
}

func CreateOrgType(t *testing.T, db *gorm.DB, jobNames ...string) *model.OrganizationType {
	ot := &model.OrganizationType{
		Name:     fmt.Sprintf("类型%d", seq.Add(1)),
		JobNames: jobNames,
	}
	require.NoError(t, db.Create(ot).Error)
	return ot
}

func CreateOrg(t *testing.T, db *gorm.DB, balance float64) *model.Organization {
	o := &model.Organization{
		Name:    fmt.Sprintf("组织%d", seq.Add(1)),
		YQPoint: balance,
	}
	require.NoError(t, db.Create(o).Error)
	return o
}

func CreatePosition(t *testing.T, db *gorm.DB, personID, orgID uint, level, year int, semester model.Semester) *model.Position {
	p := &model.Position{
		PersonID: personID,
		OrgID:    orgID,
		Level:    level,
		Year:     year,
		Semester: semester,
		Status:   model.PositionInService,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func Balance(t *testing.T, db *gorm.DB, ref model.Ref) float64 {
	b, err := model.LoadBalance(db, ref)
	require.NoError(t, err)
	return b
}

// SetBalance 把账户余额直接改成 v
func SetBalance(t *testing.T, db *gorm.DB, ref model.Ref, v float64) {
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := model.AdjustBalance(tx, ref, v-Balance(t, tx, ref))
		return err
	})
	require.NoError(t, err)
}
