package activity

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"
	"yqpoint-system/internal/module/transfer"

	"gorm.io/gorm"
)

func (s *Service) liveParticipants(ctx context.Context, activityID uint) ([]model.Participant, error) {
	var participants []model.Participant
	err := s.db.WithContext(ctx).Where("activity_id = ? AND live_key IS NOT NULL", activityID).
		Order("id").Find(&participants).Error
	return participants, err
}

// Participants 活动的全部报名记录，包括已退出的
func (s *Service) Participants(ctx context.Context, activityID uint) ([]model.Participant, error) {
	var participants []model.Participant
	err := s.db.WithContext(ctx).Where("activity_id = ?", activityID).Order("id").Find(&participants).Error
	return participants, database.Wrap(err)
}

// withAccounts 先持活动锁，再持账户锁，最后开事务。涉及活动的余额变动都按这个顺序加锁
func (s *Service) withAccounts(ctx context.Context, id uint, personID uint, fn func(tx *gorm.DB, a *model.Activity) error) error {
	return s.locker.WithLock(ctx, []string{activityKey(id)}, func(ctx context.Context) error {
		a, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		keys := transfer.AccountKeys(model.PersonRef(personID), a.OrgRef())
		return s.locker.WithLock(ctx, keys, func(ctx context.Context) error {
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				a, err := lockActivity(tx, id)
				if err != nil {
					return err
				}
				return fn(tx, a)
			})
		})
	})
}

// Register 报名活动。非竞价的收费活动在同一事务中扣费，余额不足时整体回滚
func (s *Service) Register(ctx context.Context, id, personID uint) (*model.Participant, error) {
	var person model.Person
	if err := s.db.WithContext(ctx).First(&person, personID).Error; err != nil {
		return nil, database.Wrap(err)
	}

	var participant *model.Participant
	err := s.withAccounts(ctx, id, personID, func(tx *gorm.DB, a *model.Activity) error {
		if a.Status != model.ActivityApplying {
			return response.ErrRegistrationClosed
		}
		var n int64
		if err := tx.Model(&model.Participant{}).Where("live_key = ?", *model.LiveKeyOf(id, personID)).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return response.ErrAlreadyRegistered
		}
		if !a.HasRoom() {
			return response.ErrCapacityFull
		}

		res := tx.Model(&model.Activity{}).
			Where("id = ? AND status = ? AND (capacity = ? OR current_participants < capacity)", id, model.ActivityApplying, model.UnlimitedCapacity).
			Update("current_participants", gorm.Expr("current_participants + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return response.ErrCapacityFull
		}

		participant = &model.Participant{
			ActivityID: id,
			PersonID:   personID,
			Status:     model.ParticipantApplySuccess,
			LiveKey:    model.LiveKeyOf(id, personID),
		}
		if a.Bidding {
			participant.Status = model.ParticipantApplying
		} else if a.YQPoint > 0 {
			msg := fmt.Sprintf("报名活动「%s」", a.Title)
			if _, err := transfer.Move(tx, person.Ref(), a.OrgRef(), a.YQPoint, msg, &a.ID, s.now()); err != nil {
				return err
			}
			participant.Paid = a.YQPoint
		}
		if err := tx.Create(participant).Error; err != nil {
			if database.IsDuplicate(err) {
				return response.ErrAlreadyRegistered
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, database.Wrap(err)
	}
	s.log.Info("活动报名成功", "activity_id", id, "person_id", personID, "paid", participant.Paid)
	return participant, nil
}

var withdrawable = []model.ActivityStatus{model.ActivityApplying, model.ActivityWaiting}

// Withdraw 退出报名，已扣的元气值由组织原额退回
func (s *Service) Withdraw(ctx context.Context, id, personID uint) (*model.Participant, error) {
	var participant model.Participant
	err := s.withAccounts(ctx, id, personID, func(tx *gorm.DB, a *model.Activity) error {
		if !slices.Contains(withdrawable, a.Status) {
			return response.ErrRegistrationClosed.WithTips("活动已开始，不能退出")
		}
		err := tx.Where("live_key = ?", *model.LiveKeyOf(id, personID)).Take(&participant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.ErrNotRegistered
		}
		if err != nil {
			return err
		}

		res := tx.Model(&model.Activity{}).
			Where("id = ? AND current_participants > 0", id).
			Update("current_participants", gorm.Expr("current_participants - 1"))
		if res.Error != nil {
			return res.Error
		}
		if participant.Paid > 0 {
			msg := fmt.Sprintf("退出活动「%s」退款", a.Title)
			if _, err := transfer.Move(tx, a.OrgRef(), model.PersonRef(personID), participant.Paid, msg, &a.ID, s.now()); err != nil {
				return err
			}
		}
		participant.Status = model.ParticipantCanceled
		participant.LiveKey = nil
		return tx.Model(&participant).Updates(map[string]any{"status": participant.Status, "live_key": nil}).Error
	})
	if err != nil {
		return nil, database.Wrap(err)
	}
	s.log.Info("已退出活动", "activity_id", id, "person_id", personID, "refund", participant.Paid)
	return &participant, nil
}

type ListFilter struct {
	OrgID    uint
	Status   model.ActivityStatus
	Title    string
	Page     int
	PageSize int
}

// Activities 分页查询活动，默认每页 10 条
func (s *Service) Activities(ctx context.Context, f ListFilter) ([]model.Activity, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 10
	}
	query := s.db.WithContext(ctx).Model(&model.Activity{})
	if f.OrgID != 0 {
		query = query.Where("org_id = ?", f.OrgID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Title != "" {
		query = query.Where("title LIKE ?", "%"+f.Title+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, database.Wrap(err)
	}
	var activities []model.Activity
	offset := (f.Page - 1) * f.PageSize
	err := query.Order("start DESC, id DESC").Offset(offset).Limit(f.PageSize).Find(&activities).Error
	return activities, total, database.Wrap(err)
}
