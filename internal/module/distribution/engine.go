package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/otel"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	locker lock.Locker
	log    *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, locker lock.Locker, log *slog.Logger) *Service {
	return &Service{db: db, locker: locker, log: log, now: time.Now}
}

func typeKey(t model.DistributionType) string {
	return fmt.Sprintf("distribution:type:%d", t)
}

func policyKey(id uint) string {
	return fmt.Sprintf("distribution:policy:%d", id)
}

type PolicyInput struct {
	Type         model.DistributionType
	PerPersonCap float64
	PerOrgCap    float64
	PersonPool   float64
	OrgPool      float64
	StartTime    time.Time
	Active       bool
}

func (in PolicyInput) validate() error {
	if !in.Type.Valid() {
		return response.ErrInvalidRequest.WithTips("发放类型无效")
	}
	if in.PerPersonCap < 0 || in.PerOrgCap < 0 || in.PersonPool < 0 || in.OrgPool < 0 {
		return response.ErrInvalidRequest.WithTips("上限与总额不能为负")
	}
	return nil
}

// CreatePolicy 新建发放规则，Active 时同时替换同类型的生效规则
func (s *Service) CreatePolicy(ctx context.Context, in PolicyInput) (*model.DistributionPolicy, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	start := in.StartTime
	if start.IsZero() {
		start = s.now()
	}
	p := &model.DistributionPolicy{
		Type:         in.Type,
		PerPersonCap: model.RoundPoint(in.PerPersonCap),
		PerOrgCap:    model.RoundPoint(in.PerOrgCap),
		PersonPool:   model.RoundPoint(in.PersonPool),
		OrgPool:      model.RoundPoint(in.OrgPool),
		StartTime:    start,
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, database.Wrap(err)
	}
	s.log.Info("发放规则已创建", "policy_id", p.ID, "type", p.Type)
	if !in.Active {
		return p, nil
	}
	return s.ActivatePolicy(ctx, p.ID)
}

func (s *Service) load(ctx context.Context, id uint) (*model.DistributionPolicy, error) {
	var p model.DistributionPolicy
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, database.Wrap(err)
	}
	return &p, nil
}

// ActivatePolicy 启用规则，同类型原先生效的规则在同一事务中停用
func (s *Service) ActivatePolicy(ctx context.Context, id uint) (*model.DistributionPolicy, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.locker.WithLock(ctx, []string{typeKey(p.Type)}, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Model(&model.DistributionPolicy{}).
				Where("type = ? AND active = ? AND id <> ?", p.Type, true, p.ID).
				Update("active", false).Error
			if err != nil {
				return err
			}
			return tx.Model(&model.DistributionPolicy{}).Where("id = ?", p.ID).Update("active", true).Error
		})
	})
	if err != nil {
		return nil, database.Wrap(err)
	}
	p.Active = true
	s.log.Info("发放规则已启用", "policy_id", p.ID, "type", p.Type)
	return p, nil
}

func (s *Service) DeactivatePolicy(ctx context.Context, id uint) (*model.DistributionPolicy, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.locker.WithLock(ctx, []string{typeKey(p.Type)}, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Model(&model.DistributionPolicy{}).Where("id = ?", p.ID).Update("active", false).Error
	})
	if err != nil {
		return nil, database.Wrap(err)
	}
	p.Active = false
	return p, nil
}

func (s *Service) Policies(ctx context.Context, activeOnly bool) ([]model.DistributionPolicy, error) {
	q := s.db.WithContext(ctx).Order("id DESC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var policies []model.DistributionPolicy
	err := q.Find(&policies).Error
	return policies, database.Wrap(err)
}

// Due 规则在 now 时刻是否应当执行
func Due(p *model.DistributionPolicy, now time.Time) bool {
	if !p.Active || now.Before(p.StartTime) {
		return false
	}
	if p.LastRunAt == nil {
		return true
	}
	interval := p.Type.Interval()
	if interval == 0 {
		return false
	}
	return now.Sub(*p.LastRunAt) >= interval
}

type Result struct {
	PolicyID    uint    `json:"policy_id"`
	RunID       uint    `json:"run_id"`
	PersonCount int     `json:"person_count"`
	OrgCount    int     `json:"org_count"`
	PersonShare float64 `json:"person_share"`
	OrgShare    float64 `json:"org_share"`
	Failed      int     `json:"failed"`
}

// RunDistribution 立即执行一次生效中的规则，有中断的发放时先续跑
func (s *Service) RunDistribution(ctx context.Context, id uint) (*Result, error) {
	return s.run(ctx, id, time.Time{})
}

// RunDue 执行所有到期或有中断发放的规则，供外部定时任务调用
func (s *Service) RunDue(ctx context.Context, now time.Time) ([]Result, error) {
	policies, err := s.Policies(ctx, true)
	if err != nil {
		return nil, err
	}
	var unfinished []uint
	err = s.db.WithContext(ctx).Model(&model.DistributionRun{}).
		Where("finished_at IS NULL").
		Distinct().Pluck("policy_id", &unfinished).Error
	if err != nil {
		return nil, database.Wrap(err)
	}

	var results []Result
	var errs []error
	for i := range policies {
		if !Due(&policies[i], now) && !slices.Contains(unfinished, policies[i].ID) {
			continue
		}
		r, err := s.run(ctx, policies[i].ID, now)
		if err != nil {
			s.log.Error("执行发放规则失败", "policy_id", policies[i].ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, errors.Join(errs...)
}

// run 在规则锁内重新读取规则；dueAt 非零时只在仍然到期或有中断发放时执行
func (s *Service) run(ctx context.Context, id uint, dueAt time.Time) (*Result, error) {
	ctx, span := otel.Start(ctx, "distribution.run")
	defer span.End()
	span.SetAttributes(attribute.Int("policy_id", int(id)))

	var result *Result
	err := s.locker.WithLock(ctx, []string{policyKey(id)}, func(ctx context.Context) error {
		db := s.db.WithContext(ctx)
		var p model.DistributionPolicy
		if err := db.First(&p, id).Error; err != nil {
			return err
		}
		if !p.Active {
			return response.ErrInvalidRequest.WithTips("规则未启用")
		}

		run, err := s.unfinishedRun(ctx, p.ID)
		if err != nil {
			return err
		}
		if run != nil {
			s.log.Warn("续跑中断的发放", "policy_id", p.ID, "run_id", run.ID)
		} else {
			if !dueAt.IsZero() && !Due(&p, dueAt) {
				return nil
			}
			if run, err = s.plan(ctx, &p); err != nil {
				return err
			}
		}

		result = &Result{
			PolicyID:    p.ID,
			RunID:       run.ID,
			PersonCount: run.PersonCount,
			OrgCount:    run.OrgCount,
			PersonShare: run.PersonShare,
			OrgShare:    run.OrgShare,
		}
		var pending []model.DistributionCredit
		if err := db.Where("run_id = ? AND credited_at IS NULL", run.ID).Order("id").Find(&pending).Error; err != nil {
			return err
		}
		for i := range pending {
			if err := s.credit(ctx, &pending[i]); err != nil {
				s.log.Error("发放入账失败", "run_id", run.ID, "account", pending[i].Ref().String(), "amount", pending[i].Amount, "error", err)
				result.Failed++
			}
		}

		return db.Transaction(func(tx *gorm.DB) error {
			now := s.now()
			if err := tx.Model(run).Update("finished_at", now).Error; err != nil {
				return err
			}
			updates := map[string]any{"last_run_at": now}
			if p.Type == model.DistributeTemporary {
				updates["active"] = false
			}
			return tx.Model(&model.DistributionPolicy{}).Where("id = ?", p.ID).Updates(updates).Error
		})
	})
	if err != nil {
		return nil, database.Wrap(err)
	}
	if result != nil {
		s.log.Info("元气值发放完成", "policy_id", id, "run_id", result.RunID, "persons", result.PersonCount, "person_share", result.PersonShare,
			"orgs", result.OrgCount, "org_share", result.OrgShare, "failed", result.Failed)
	}
	return result, nil
}

func (s *Service) unfinishedRun(ctx context.Context, policyID uint) (*model.DistributionRun, error) {
	var run model.DistributionRun
	err := s.db.WithContext(ctx).
		Where("policy_id = ? AND finished_at IS NULL", policyID).
		Order("id").Take(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Service) eligible(ctx context.Context, kind model.AccountKind, limit float64) ([]uint, error) {
	q := s.db.WithContext(ctx)
	switch kind {
	case model.AccountPerson:
		q = q.Model(&model.Person{}).Where("status = ?", model.PersonActive)
	default:
		q = q.Model(&model.Organization{}).Where("status = ?", model.OrgActive)
	}
	var ids []uint
	err := q.Where("yq_point < ?", limit).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// split 平分 pool 给余额低于 limit 的账户，没有符合条件的账户时不发放
func (s *Service) split(ctx context.Context, kind model.AccountKind, limit, pool float64) ([]model.DistributionCredit, float64, error) {
	if pool <= 0 {
		return nil, 0, nil
	}
	ids, err := s.eligible(ctx, kind, limit)
	if err != nil || len(ids) == 0 {
		return nil, 0, err
	}
	share := pool / float64(len(ids))
	credits := make([]model.DistributionCredit, 0, len(ids))
	for _, id := range ids {
		credits = append(credits, model.DistributionCredit{AccountKind: kind, AccountID: id, Amount: share})
	}
	return credits, share, nil
}

// plan 确定本次发放的全部入账明细并落库，之后才开始入账
func (s *Service) plan(ctx context.Context, p *model.DistributionPolicy) (*model.DistributionRun, error) {
	persons, personShare, err := s.split(ctx, model.AccountPerson, p.PerPersonCap, p.PersonPool)
	if err != nil {
		return nil, err
	}
	orgs, orgShare, err := s.split(ctx, model.AccountOrg, p.PerOrgCap, p.OrgPool)
	if err != nil {
		return nil, err
	}

	run := &model.DistributionRun{
		PolicyID:    p.ID,
		PersonCount: len(persons),
		OrgCount:    len(orgs),
		PersonShare: model.RoundPoint(personShare),
		OrgShare:    model.RoundPoint(orgShare),
	}
	credits := append(persons, orgs...)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		if len(credits) == 0 {
			return nil
		}
		for i := range credits {
			credits[i].RunID = run.ID
		}
		return tx.CreateInBatches(credits, 500).Error
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// credit 入账一条明细，已入账的明细直接跳过
func (s *Service) credit(ctx context.Context, c *model.DistributionCredit) error {
	ref := c.Ref()
	return s.locker.WithLock(ctx, []string{ref.LockKey()}, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&model.DistributionCredit{}).
				Where("id = ? AND credited_at IS NULL", c.ID).
				Update("credited_at", s.now())
			if res.Error != nil || res.RowsAffected == 0 {
				return res.Error
			}
			_, err := model.AdjustBalance(tx, ref, c.Amount)
			return err
		})
	})
}
