package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/notify"
	"yqpoint-system/internal/global/otel"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/global/term"
	"yqpoint-system/internal/model"
	"yqpoint-system/internal/module/transfer"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const relatedType = "activity"

var timeRank = map[model.ActivityStatus]int{
	model.ActivityReviewing:   0,
	model.ActivityApplying:    1,
	model.ActivityWaiting:     2,
	model.ActivityProgressing: 3,
	model.ActivityEnd:         4,
}

func byTime(a *model.Activity, now time.Time) model.ActivityStatus {
	switch {
	case now.Before(a.ApplyEnd):
		return model.ActivityApplying
	case now.Before(a.Start):
		return model.ActivityWaiting
	case now.Before(a.End):
		return model.ActivityProgressing
	}
	return model.ActivityEnd
}

// NextStatus 按当前时间推进活动状态，终态不变，且只前进不后退。
// 审核中的活动在开始前保持审核中
func NextStatus(a *model.Activity, now time.Time) model.ActivityStatus {
	if a.Status.Terminal() {
		return a.Status
	}
	if a.Status == model.ActivityReviewing && now.Before(a.Start) {
		return a.Status
	}
	next := byTime(a, now)
	if timeRank[next] < timeRank[a.Status] {
		return a.Status
	}
	return next
}

type Service struct {
	db       *gorm.DB
	locker   lock.Locker
	notifier notify.Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, locker lock.Locker, notifier notify.Notifier, log *slog.Logger) *Service {
	return &Service{
		db:       db,
		locker:   locker,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

type Input struct {
	Title            string
	ExamineTeacherID uint
	EndBefore        model.EndBefore
	ApplyEnd         *time.Time // 为空时由 EndBefore 推算
	Start            time.Time
	End              time.Time
	Location         string
	Introduction     string
	Capacity         int
	YQPoint          float64
	Budget           float64
	Bidding          bool
	Source           model.PointSource
}

func checkSchedule(applyEnd, start, end, now time.Time) error {
	if !applyEnd.Before(start) || !start.Before(end) {
		return response.ErrInvalidSchedule
	}
	if !start.After(now) {
		return response.ErrInvalidSchedule.WithTips("开始时间已过")
	}
	return nil
}

func checkCapacity(capacity int) error {
	if capacity != model.UnlimitedCapacity && capacity <= 0 {
		return response.ErrInvalidRequest.WithTips("活动容量无效")
	}
	return nil
}

// CreateActivity 组织发起活动，进入审核
func (s *Service) CreateActivity(ctx context.Context, t term.Term, orgID uint, in Input) (*model.Activity, error) {
	now := s.now()
	if strings.TrimSpace(in.Title) == "" {
		return nil, response.ErrInvalidRequest.WithTips("活动名称不能为空")
	}
	if err := checkCapacity(in.Capacity); err != nil {
		return nil, err
	}
	if in.YQPoint < 0 || in.Budget < 0 {
		return nil, response.ErrInvalidRequest.WithTips("价格与预算不能为负")
	}
	applyEnd := in.Start.Add(-in.EndBefore.Duration())
	if in.ApplyEnd != nil {
		applyEnd = *in.ApplyEnd
	}
	if err := checkSchedule(applyEnd, in.Start, in.End, now); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var org model.Organization
	if err := db.First(&org, orgID).Error; err != nil {
		return nil, database.Wrap(err)
	}
	if !org.Active() {
		return nil, response.ErrForbidden.WithTips("组织已停用")
	}
	var teacher model.Person
	if err := db.First(&teacher, in.ExamineTeacherID).Error; err != nil {
		return nil, database.Wrap(err)
	}
	if teacher.Identity != model.IdentityTeacher {
		return nil, response.ErrInvalidRequest.WithTips("审核人必须是老师")
	}

	a := &model.Activity{
		Title:            in.Title,
		OrgID:            orgID,
		ExamineTeacherID: teacher.ID,
		Year:             t.Year,
		Semester:         t.Semester,
		EndBefore:        in.EndBefore,
		ApplyEnd:         applyEnd,
		Start:            in.Start,
		End:              in.End,
		Location:         in.Location,
		Introduction:     in.Introduction,
		Capacity:         in.Capacity,
		YQPoint:          in.YQPoint,
		Budget:           model.RoundPoint(in.Budget),
		Bidding:          in.Bidding,
		Source:           in.Source,
		Status:           model.ActivityReviewing,
		PublishTime:      now,
	}
	if err := db.Create(a).Error; err != nil {
		return nil, database.Wrap(err)
	}

	s.log.Info("活动已提交审核", "activity_id", a.ID, "org_id", orgID, "term", t.String())
	notify.Emit(ctx, s.notifier, s.log, notify.Event{
		Receiver:    teacher.Ref(),
		Sender:      org.Ref(),
		Title:       notify.TitleVerifyInform,
		Content:     fmt.Sprintf("%s 发起的活动「%s」等待审核", org.Name, a.Title),
		Type:        notify.NeedDo,
		RelatedType: relatedType,
		RelatedID:   a.ID,
	})
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*model.Activity, error) {
	var a model.Activity
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, database.Wrap(err)
	}
	return &a, nil
}

func lockActivity(tx *gorm.DB, id uint) (*model.Activity, error) {
	var a model.Activity
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// setStatus 仅当状态仍为 from 时更新
func setStatus(tx *gorm.DB, a *model.Activity, to model.ActivityStatus, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&model.Activity{}).Where("id = ? AND status = ?", a.ID, a.Status).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return response.ErrActivityLocked.WithTips("活动状态已变化")
	}
	a.Status = to
	return nil
}

// withActivity 持有活动锁后在事务中重新读取活动
func (s *Service) withActivity(ctx context.Context, id uint, fn func(tx *gorm.DB, a *model.Activity) error) (*model.Activity, error) {
	var a *model.Activity
	err := s.locker.WithLock(ctx, []string{activityKey(id)}, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			if a, err = lockActivity(tx, id); err != nil {
				return err
			}
			return fn(tx, a)
		})
	})
	if err != nil {
		return nil, database.Wrap(err)
	}
	return a, nil
}

func activityKey(id uint) string {
	return (&model.Activity{Model: model.Model{ID: id}}).LockKey()
}

// Review 审核老师通过或驳回活动
func (s *Service) Review(ctx context.Context, id, reviewerID uint, approve bool) (*model.Activity, error) {
	a, err := s.withActivity(ctx, id, func(tx *gorm.DB, a *model.Activity) error {
		if a.ExamineTeacherID != reviewerID {
			return response.ErrForbidden.WithTips("只有审核老师可以审核")
		}
		if a.Status != model.ActivityReviewing {
			return response.ErrAlreadyResolved
		}
		if !approve {
			return setStatus(tx, a, model.ActivityReject, nil)
		}
		opened := *a
		opened.Status = model.ActivityApplying
		return setStatus(tx, a, NextStatus(&opened, s.now()), map[string]any{"valid": true})
	})
	if err != nil {
		return nil, err
	}

	result := "已通过"
	if !approve {
		result = "未通过"
	} else {
		a.Valid = true
	}
	s.log.Info("活动审核完成", "activity_id", id, "approve", approve, "status", a.Status)
	notify.Emit(ctx, s.notifier, s.log, notify.Event{
		Receiver:    model.OrgRef(a.OrgID),
		Sender:      model.PersonRef(reviewerID),
		Title:       notify.TitleVerifyInform,
		Content:     fmt.Sprintf("活动「%s」审核%s", a.Title, result),
		Type:        notify.NeedRead,
		RelatedType: relatedType,
		RelatedID:   a.ID,
	})
	return a, nil
}

func owned(a *model.Activity, orgID uint) error {
	if a.OrgID != orgID {
		return response.ErrForbidden.WithTips("只能管理本组织的活动")
	}
	return nil
}

// Abort 组织撤回审核中的活动
func (s *Service) Abort(ctx context.Context, id, orgID uint) (*model.Activity, error) {
	a, err := s.withActivity(ctx, id, func(tx *gorm.DB, a *model.Activity) error {
		if err := owned(a, orgID); err != nil {
			return err
		}
		if a.Status != model.ActivityReviewing {
			return response.ErrActivityLocked
		}
		return setStatus(tx, a, model.ActivityAbort, nil)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("活动已撤回", "activity_id", id, "org_id", orgID)
	notify.Emit(ctx, s.notifier, s.log, notify.Event{
		Receiver:    model.PersonRef(a.ExamineTeacherID),
		Sender:      a.OrgRef(),
		Title:       notify.TitleVerifyInform,
		Content:     fmt.Sprintf("活动「%s」已由组织撤回，无需审核", a.Title),
		Type:        notify.NeedRead,
		RelatedType: relatedType,
		RelatedID:   a.ID,
	})
	return a, nil
}

var cancelable = []model.ActivityStatus{model.ActivityApplying, model.ActivityWaiting, model.ActivityProgressing}

// Cancel 取消已开放的活动。已扣费的参与者原额退回，组织余额不足时记为待确认的退款
func (s *Service) Cancel(ctx context.Context, id, orgID uint) (*model.Activity, error) {
	ctx, span := otel.Start(ctx, "activity.cancel")
	defer span.End()

	var a *model.Activity
	var live []model.Participant
	var owed []*model.TransferRecord
	refunded := 0
	err := s.locker.WithLock(ctx, []string{activityKey(id)}, func(ctx context.Context) error {
		var err error
		if live, err = s.liveParticipants(ctx, id); err != nil {
			return err
		}
		refs := []model.Ref{model.OrgRef(orgID)}
		for _, p := range live {
			refs = append(refs, model.PersonRef(p.PersonID))
		}

		return s.locker.WithLock(ctx, transfer.AccountKeys(refs...), func(ctx context.Context) error {
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				if a, err = lockActivity(tx, id); err != nil {
					return err
				}
				if err := owned(a, orgID); err != nil {
					return err
				}
				if !slices.Contains(cancelable, a.Status) {
					return response.ErrActivityLocked
				}
				if err := setStatus(tx, a, model.ActivityCanceled, nil); err != nil {
					return err
				}
				balance, err := model.LoadBalance(tx, a.OrgRef())
				if err != nil {
					return err
				}
				// 余额不足以退的部分记为组织欠款，由参与者日后确认收款
				now := s.now()
				for _, p := range live {
					if p.Paid <= 0 {
						continue
					}
					if p.Paid > balance {
						rec, err := transfer.Owe(tx, a.OrgRef(), model.PersonRef(p.PersonID), p.Paid, "活动取消退款", &a.ID, now)
						if err != nil {
							return err
						}
						owed = append(owed, rec)
						continue
					}
					if _, err := transfer.Move(tx, a.OrgRef(), model.PersonRef(p.PersonID), p.Paid, "活动取消退款", &a.ID, now); err != nil {
						return err
					}
					balance = model.RoundPoint(balance - p.Paid)
					refunded++
				}
				return tx.Model(&model.Participant{}).
					Where("activity_id = ? AND live_key IS NOT NULL", id).
					Updates(map[string]any{"status": model.ParticipantCanceled, "live_key": nil}).Error
			})
		})
	})
	if err != nil {
		return nil, database.Wrap(err)
	}

	personIDs := make([]uint, 0, len(live))
	for _, p := range live {
		personIDs = append(personIDs, p.PersonID)
	}
	s.log.Info("活动已取消", "activity_id", id, "refunded", refunded, "owed", len(owed))
	s.inform(ctx, a, fmt.Sprintf("活动「%s」已取消", a.Title), personIDs)
	for _, rec := range owed {
		notify.Emit(ctx, s.notifier, s.log, transfer.ConfirmEvent(rec))
	}
	return a, nil
}

// inform 向组织和给定参与者广播活动状态变化
func (s *Service) inform(ctx context.Context, a *model.Activity, content string, personIDs []uint) {
	receivers := []model.Ref{a.OrgRef()}
	for _, id := range personIDs {
		receivers = append(receivers, model.PersonRef(id))
	}

	bulkID := notify.NewBulkID()
	events := make([]notify.Event, 0, len(receivers))
	for _, r := range receivers {
		events = append(events, notify.Event{
			Receiver:    r,
			Sender:      a.OrgRef(),
			Title:       notify.TitleActivityInform,
			Content:     content,
			Type:        notify.NeedRead,
			RelatedType: relatedType,
			RelatedID:   a.ID,
			BulkID:      bulkID,
		})
	}
	notify.Emit(ctx, s.notifier, s.log, events...)
}

// Advance 把活动推进到 now 时刻应处的状态，返回状态是否变化
func (s *Service) Advance(ctx context.Context, id uint, now time.Time) (*model.Activity, bool, error) {
	var from model.ActivityStatus
	a, err := s.withActivity(ctx, id, func(tx *gorm.DB, a *model.Activity) error {
		from = a.Status
		next := NextStatus(a, now)
		if next == a.Status {
			return nil
		}
		return setStatus(tx, a, next, nil)
	})
	if err != nil {
		return nil, false, err
	}
	if a.Status == from {
		return a, false, nil
	}
	s.log.Info("活动状态推进", "activity_id", id, "from", from, "to", a.Status)
	live, err := s.liveParticipants(ctx, id)
	if err != nil {
		s.log.Error("查询活动参与者失败", "activity_id", id, "error", err)
	}
	personIDs := make([]uint, 0, len(live))
	for _, p := range live {
		personIDs = append(personIDs, p.PersonID)
	}
	s.inform(ctx, a, fmt.Sprintf("活动「%s」状态更新为 %s", a.Title, a.Status), personIDs)
	return a, true, nil
}

var terminal = []model.ActivityStatus{model.ActivityCanceled, model.ActivityAbort, model.ActivityReject, model.ActivityEnd}

// AdvanceAll 推进本学期全部未结束的活动，供外部定时任务调用
func (s *Service) AdvanceAll(ctx context.Context, t term.Term, now time.Time) (int, error) {
	ctx, span := otel.Start(ctx, "activity.advance_all")
	defer span.End()

	var activities []model.Activity
	err := t.Scope(s.db.WithContext(ctx)).Where("status NOT IN ?", terminal).Find(&activities).Error
	if err != nil {
		return 0, database.Wrap(err)
	}

	changed := 0
	var errs []error
	for i := range activities {
		if NextStatus(&activities[i], now) == activities[i].Status {
			continue
		}
		_, ok, err := s.Advance(ctx, activities[i].ID, now)
		if err != nil {
			s.log.Error("推进活动状态失败", "activity_id", activities[i].ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if ok {
			changed++
		}
	}
	span.SetAttributes(attribute.Int("changed", changed))
	return changed, errors.Join(errs...)
}

type Patch struct {
	Title        *string
	Location     *string
	Introduction *string
	Capacity     *int
	YQPoint      *float64
	ApplyEnd     *time.Time
	Start        *time.Time
	End          *time.Time
}

var editable = []model.ActivityStatus{model.ActivityReviewing, model.ActivityApplying}

// Update 修改审核中或报名中的活动
func (s *Service) Update(ctx context.Context, id, orgID uint, patch Patch) (*model.Activity, error) {
	return s.withActivity(ctx, id, func(tx *gorm.DB, a *model.Activity) error {
		if err := owned(a, orgID); err != nil {
			return err
		}
		if !slices.Contains(editable, a.Status) {
			return response.ErrActivityLocked
		}

		updates := map[string]any{}
		if patch.YQPoint != nil {
			if a.Bidding {
				return response.ErrBiddingPriceLocked
			}
			if *patch.YQPoint < 0 {
				return response.ErrInvalidRequest.WithTips("价格不能为负")
			}
			updates["yq_point"] = model.RoundPoint(*patch.YQPoint)
		}
		if patch.Capacity != nil {
			if err := checkCapacity(*patch.Capacity); err != nil {
				return err
			}
			if *patch.Capacity != model.UnlimitedCapacity && *patch.Capacity < a.CurrentParticipants {
				return response.ErrCapacityTooSmall
			}
			updates["capacity"] = *patch.Capacity
		}
		if patch.ApplyEnd != nil || patch.Start != nil || patch.End != nil {
			applyEnd, start, end := a.ApplyEnd, a.Start, a.End
			if patch.Start != nil {
				start = *patch.Start
				applyEnd = start.Add(-a.EndBefore.Duration())
			}
			if patch.ApplyEnd != nil {
				applyEnd = *patch.ApplyEnd
			}
			if patch.End != nil {
				end = *patch.End
			}
			if err := checkSchedule(applyEnd, start, end, s.now()); err != nil {
				return err
			}
			updates["apply_end"], updates["start"], updates["end"] = applyEnd, start, end
		}
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return response.ErrInvalidRequest.WithTips("活动名称不能为空")
			}
			updates["title"] = *patch.Title
		}
		if patch.Location != nil {
			updates["location"] = *patch.Location
		}
		if patch.Introduction != nil {
			updates["introduction"] = *patch.Introduction
		}
		if len(updates) == 0 {
			return nil
		}

		res := tx.Model(&model.Activity{}).Where("id = ? AND status = ?", a.ID, a.Status).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return response.ErrActivityLocked
		}
		return tx.First(a, a.ID).Error
	})
}
