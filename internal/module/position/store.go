package position

import (
	"context"
	"errors"

	"yqpoint-system/internal/global/term"
	"yqpoint-system/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Filter struct {
	PersonID uint
	OrgID    uint
}

func (f Filter) scope(db *gorm.DB) *gorm.DB {
	if f.PersonID != 0 {
		db = db.Where("person_id = ?", f.PersonID)
	}
	if f.OrgID != 0 {
		db = db.Where("org_id = ?", f.OrgID)
	}
	return db
}

// Store 成员职位的读写。写操作只由申请流程在持锁事务中调用
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CurrentPositions 本学期的全部职位记录，含已离职
func (s *Store) CurrentPositions(ctx context.Context, t term.Term, f Filter) ([]model.Position, error) {
	var positions []model.Position
	err := s.db.WithContext(ctx).
		Scopes(t.Scope, f.scope).
		Order("id").
		Find(&positions).Error
	return positions, err
}

// ActivePositions 本学期在职的职位
func (s *Store) ActivePositions(ctx context.Context, t term.Term, f Filter) ([]model.Position, error) {
	var positions []model.Position
	err := s.db.WithContext(ctx).
		Scopes(t.Scope, f.scope).
		Where("status = ?", model.PositionInService).
		Order("level, id").
		Find(&positions).Error
	return positions, err
}

type Member struct {
	PersonID  uint   `json:"person_id"`
	Name      string `json:"name"`
	StudentID string `json:"student_id"`
	Level     int    `json:"level"`
	JobName   string `json:"job_name"`
}

// Members 组织本学期在职成员及职位名称
func (s *Store) Members(ctx context.Context, t term.Term, orgID uint) ([]Member, error) {
	var org model.Organization
	if err := s.db.WithContext(ctx).Preload("Type").First(&org, orgID).Error; err != nil {
		return nil, err
	}
	jobs := org.Type
	if jobs == nil {
		jobs = &model.OrganizationType{}
	}

	var positions []model.Position
	err := s.db.WithContext(ctx).
		Scopes(t.Scope).
		Preload("Person").
		Where("org_id = ? AND status = ?", orgID, model.PositionInService).
		Order("level, id").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(positions))
	for _, p := range positions {
		m := Member{PersonID: p.PersonID, Level: p.Level, JobName: jobs.LevelName(p.Level)}
		if p.Person != nil {
			m.Name = p.Person.Name
			m.StudentID = p.Person.StudentID
		}
		members = append(members, m)
	}
	return members, nil
}

// activeOf 锁定 (人, 组织) 本学期的在职记录，不存在时返回 nil
func activeOf(tx *gorm.DB, t term.Term, personID, orgID uint) (*model.Position, error) {
	var p model.Position
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(t.Scope).
		Where("person_id = ? AND org_id = ? AND status = ?", personID, orgID, model.PositionInService).
		Order("id DESC").
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

var errRowMismatch = errors.New("position update affected unexpected number of rows")

func exactlyOne(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return errRowMismatch
	}
	return nil
}

func setStatus(tx *gorm.DB, id uint, status model.PositionStatus) error {
	return exactlyOne(tx.Model(&model.Position{}).Where("id = ?", id).Update("status", status))
}

func setLevel(tx *gorm.DB, id uint, level int) error {
	return exactlyOne(tx.Model(&model.Position{}).Where("id = ?", id).Update("level", level))
}

// upsertJoin 本学期已有离职记录则恢复在职，否则新建
func upsertJoin(tx *gorm.DB, t term.Term, personID, orgID uint, level int) (*model.Position, error) {
	var p model.Position
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(t.Scope).
		Where("person_id = ? AND org_id = ?", personID, orgID).
		Order("id DESC").
		Take(&p).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		p = model.Position{
			PersonID: personID,
			OrgID:    orgID,
			Level:    level,
			Year:     t.Year,
			Semester: t.Semester,
			Status:   model.PositionInService,
		}
		return &p, tx.Create(&p).Error
	case err != nil:
		return nil, err
	}

	res := tx.Model(&model.Position{}).Where("id = ?", p.ID).Updates(map[string]any{
		"status": model.PositionInService,
		"level":  level,
	})
	if err := exactlyOne(res); err != nil {
		return nil, err
	}
	p.Status = model.PositionInService
	p.Level = level
	return &p, nil
}
