package position

import (
	"context"
	"errors"
	"fmt"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/notify"
	"yqpoint-system/internal/global/otel"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/global/term"
	"yqpoint-system/internal/model"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Decision string

const (
	Approve Decision = "APPROVE"
	Refuse  Decision = "REFUSE"
)

const relatedType = "modify_position"

// CreateApplication 提交加入/退出/调岗申请。同一对 (人, 组织) 同时只能有一条待处理申请
func (s *Service) CreateApplication(ctx context.Context, t term.Term, personID, orgID uint, applyType model.ApplyType, level int, reason string) (model.ApplyType, *model.MembershipApplication, error) {
	ctx, span := otel.Start(ctx, "position.create_application")
	defer span.End()
	span.SetAttributes(attribute.String("apply_type", string(applyType)))

	if !applyType.Valid() || level < 0 {
		return applyType, nil, response.ErrInvalidRequest.WithTips("申请类型或职位等级无效")
	}
	if err := s.checkParties(ctx, personID, orgID); err != nil {
		return applyType, nil, err
	}

	var app *model.MembershipApplication
	err := s.locker.WithLock(ctx, []string{pairKey(personID, orgID, t)}, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := activeOf(tx, t, personID, orgID)
			if err != nil {
				return err
			}

			switch applyType {
			case model.ApplyJoin:
				if current != nil {
					return response.ErrDuplicateActive
				}
			case model.ApplyWithdraw:
				if current == nil {
					return response.ErrNotMember
				}
				level = current.Level
			case model.ApplyTransfer:
				if current == nil {
					return response.ErrNotMember
				}
				if level >= current.Level {
					return response.ErrInvalidTransfer
				}
			}

			var pending int64
			err = tx.Model(&model.MembershipApplication{}).
				Where("person_id = ? AND org_id = ? AND status = ?", personID, orgID, model.ApplicationPending).
				Count(&pending).Error
			if err != nil {
				return err
			}
			if pending > 0 {
				return response.ErrDuplicatePending
			}

			app = &model.MembershipApplication{
				PersonID:   personID,
				OrgID:      orgID,
				Level:      level,
				Reason:     reason,
				ApplyType:  applyType,
				Status:     model.ApplicationPending,
				Year:       t.Year,
				Semester:   t.Semester,
				PendingKey: model.PendingKeyOf(personID, orgID),
			}
			if err := tx.Create(app).Error; err != nil {
				if database.IsDuplicate(err) {
					return response.ErrDuplicatePending
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		return applyType, nil, database.Wrap(err)
	}

	s.log.Info("成员申请已提交", "application_id", app.ID, "person_id", personID, "org_id", orgID, "apply_type", applyType)
	notify.Emit(ctx, s.notifier, s.log, notify.Event{
		Receiver:    model.OrgRef(orgID),
		Sender:      model.PersonRef(personID),
		Title:       notify.TitlePositionInform,
		Content:     fmt.Sprintf("收到新的%s申请", applyType),
		Type:        notify.NeedDo,
		RelatedType: relatedType,
		RelatedID:   app.ID,
	})
	return applyType, app, nil
}

func (s *Service) checkParties(ctx context.Context, personID, orgID uint) error {
	var person model.Person
	if err := s.db.WithContext(ctx).First(&person, personID).Error; err != nil {
		return database.Wrap(err)
	}
	if person.Status != model.PersonActive {
		return response.ErrForbidden.WithTips("已毕业的用户不能提交申请")
	}
	var org model.Organization
	if err := s.db.WithContext(ctx).First(&org, orgID).Error; err != nil {
		return database.Wrap(err)
	}
	if !org.Active() {
		return response.ErrForbidden.WithTips("组织已停用")
	}
	return nil
}

func (s *Service) load(ctx context.Context, id uint) (*model.MembershipApplication, error) {
	var app model.MembershipApplication
	if err := s.db.WithContext(ctx).First(&app, id).Error; err != nil {
		return nil, database.Wrap(err)
	}
	return &app, nil
}

// lockPending 持锁事务中重新读取申请，已处理则返回 ErrAlreadyResolved
func lockPending(tx *gorm.DB, id uint) (*model.MembershipApplication, error) {
	var app model.MembershipApplication
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, id).Error; err != nil {
		return nil, err
	}
	if !app.IsPending() {
		return nil, response.ErrAlreadyResolved
	}
	return &app, nil
}

// finish 只允许从 PENDING 离开一次
func finish(tx *gorm.DB, id uint, status model.ApplicationStatus) error {
	res := tx.Model(&model.MembershipApplication{}).
		Where("id = ? AND status = ?", id, model.ApplicationPending).
		Updates(map[string]any{"status": status, "pending_key": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return response.ErrAlreadyResolved
	}
	return nil
}

// termOf 申请提交时所在的学期，审批和撤回都按这一学期加锁并修改职位
func termOf(app *model.MembershipApplication) term.Term {
	return term.New(app.Year, app.Semester)
}

// ResolveApplication 审批申请。通过时在申请所属学期恰好修改一条职位记录
func (s *Service) ResolveApplication(ctx context.Context, id uint, decision Decision) (*model.MembershipApplication, error) {
	ctx, span := otel.Start(ctx, "position.resolve_application")
	defer span.End()
	span.SetAttributes(attribute.String("decision", string(decision)))

	if decision != Approve && decision != Refuse {
		return nil, response.ErrInvalidDecision
	}
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	t := termOf(app)
	err = s.locker.WithLock(ctx, []string{pairKey(app.PersonID, app.OrgID, t)}, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			app, err = lockPending(tx, id)
			if err != nil {
				return err
			}
			if decision == Refuse {
				app.Status = model.ApplicationRefused
				return finish(tx, id, model.ApplicationRefused)
			}
			if err := s.apply(tx, t, app); err != nil {
				return err
			}
			app.Status = model.ApplicationConfirmed
			return finish(tx, id, model.ApplicationConfirmed)
		})
	})
	if err != nil {
		if errors.Is(err, errRowMismatch) {
			s.log.Error("职位记录更新行数异常", "application_id", id, "error", err)
		}
		return nil, database.Wrap(err)
	}
	app.PendingKey = nil

	s.log.Info("成员申请已处理", "application_id", id, "decision", decision, "apply_type", app.ApplyType)
	notify.Emit(ctx, s.notifier, s.log, notify.Event{
		Receiver:    model.PersonRef(app.PersonID),
		Sender:      model.OrgRef(app.OrgID),
		Title:       notify.TitlePositionInform,
		Content:     fmt.Sprintf("您的%s申请%s", app.ApplyType, resultText(app.Status)),
		Type:        notify.NeedRead,
		RelatedType: relatedType,
		RelatedID:   app.ID,
	})
	return app, nil
}

func (s *Service) apply(tx *gorm.DB, t term.Term, app *model.MembershipApplication) error {
	current, err := activeOf(tx, t, app.PersonID, app.OrgID)
	if err != nil {
		return err
	}
	switch app.ApplyType {
	case model.ApplyJoin:
		if current != nil {
			return response.ErrDuplicateActive
		}
		_, err = upsertJoin(tx, t, app.PersonID, app.OrgID, app.Level)
		return err
	case model.ApplyWithdraw:
		if current == nil {
			return response.ErrNotMember
		}
		return setStatus(tx, current.ID, model.PositionDepart)
	case model.ApplyTransfer:
		if current == nil {
			return response.ErrNotMember
		}
		if app.Level >= current.Level {
			return response.ErrInvalidTransfer
		}
		return setLevel(tx, current.ID, app.Level)
	}
	return response.ErrInvalidRequest
}

// CancelApplication 申请人撤回待处理的申请，与审批使用同一把锁
func (s *Service) CancelApplication(ctx context.Context, id, personID uint) (*model.MembershipApplication, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.PersonID != personID {
		return nil, response.ErrForbidden.WithTips("只能撤回自己的申请")
	}

	err = s.locker.WithLock(ctx, []string{pairKey(app.PersonID, app.OrgID, termOf(app))}, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			app, err = lockPending(tx, id)
			if err != nil {
				return err
			}
			app.Status = model.ApplicationCanceled
			return finish(tx, id, model.ApplicationCanceled)
		})
	})
	if err != nil {
		return nil, database.Wrap(err)
	}
	app.PendingKey = nil

	s.log.Info("成员申请已撤回", "application_id", id, "person_id", personID)
	notify.Emit(ctx, s.notifier, s.log, notify.Event{
		Receiver:    model.OrgRef(app.OrgID),
		Sender:      model.PersonRef(app.PersonID),
		Title:       notify.TitlePositionInform,
		Content:     fmt.Sprintf("%s申请已被申请人撤回", app.ApplyType),
		Type:        notify.NeedRead,
		RelatedType: relatedType,
		RelatedID:   app.ID,
	})
	return app, nil
}

// Applications 组织或个人的申请记录，按时间倒序
func (s *Service) Applications(ctx context.Context, f Filter, status *model.ApplicationStatus) ([]model.MembershipApplication, error) {
	q := s.db.WithContext(ctx).Scopes(f.scope)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var apps []model.MembershipApplication
	err := q.Order("id DESC").Find(&apps).Error
	return apps, database.Wrap(err)
}

func resultText(status model.ApplicationStatus) string {
	switch status {
	case model.ApplicationConfirmed:
		return "已通过"
	case model.ApplicationRefused:
		return "未通过"
	}
	return "已撤回"
}
