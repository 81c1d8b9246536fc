package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNegativeBalance = errors.New("yqpoint balance would become negative")
	ErrAccountNotFound = errors.New("account not found")
)

type AccountKind string

const (
	AccountPerson AccountKind = "person"
	AccountOrg    AccountKind = "org"
)

// Ref 持有元气值的账户：自然人或组织
type Ref struct {
	Kind AccountKind `json:"kind"`
	ID   uint        `json:"id"`
}

func PersonRef(id uint) Ref { return Ref{Kind: AccountPerson, ID: id} }
func OrgRef(id uint) Ref    { return Ref{Kind: AccountOrg, ID: id} }

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

func (r Ref) Valid() bool {
	return (r.Kind == AccountPerson || r.Kind == AccountOrg) && r.ID != 0
}

// LockKey 账户余额的锁键
func (r Ref) LockKey() string {
	return "account:" + r.String()
}

// RoundPoint 保留一位小数，四舍五入（远离零）
func RoundPoint(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

func accountModel(kind AccountKind) (any, error) {
	switch kind {
	case AccountPerson:
		return &Person{}, nil
	case AccountOrg:
		return &Organization{}, nil
	}
	return nil, ErrAccountNotFound
}

type balanceRow struct {
	YQPoint float64 `gorm:"column:yq_point"`
}

func loadBalance(tx *gorm.DB, ref Ref, forUpdate bool) (float64, error) {
	m, err := accountModel(ref.Kind)
	if err != nil {
		return 0, err
	}
	q := tx.Model(m)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row balanceRow
	err = q.Select("yq_point").Where("id = ?", ref.ID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrAccountNotFound
	}
	return row.YQPoint, err
}

func LoadBalance(tx *gorm.DB, ref Ref) (float64, error) {
	return loadBalance(tx, ref, false)
}

// AdjustBalance 锁定账户行并调整余额，是 yq_point 字段唯一的写入口
func AdjustBalance(tx *gorm.DB, ref Ref, delta float64) (float64, error) {
	before, err := loadBalance(tx, ref, true)
	if err != nil {
		return 0, err
	}
	after := RoundPoint(before + delta)
	if after < 0 {
		return before, ErrNegativeBalance
	}
	m, _ := accountModel(ref.Kind)
	res := tx.Model(m).Where("id = ?", ref.ID).Update("yq_point", after)
	if res.Error != nil {
		return before, res.Error
	}
	if res.RowsAffected != 1 {
		return before, ErrAccountNotFound
	}
	return after, nil
}
