package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/notify"
	"yqpoint-system/internal/global/otel"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/global/storage"
	"yqpoint-system/internal/model"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Decision string

const (
	Accept  Decision = "ACCEPT"
	Refuse  Decision = "REFUSE"
	Suspend Decision = "SUSPEND"
	Refund  Decision = "REFUND"
)

var decisionStatus = map[Decision]model.TransferStatus{
	Accept:  model.TransferAccepted,
	Refuse:  model.TransferRefused,
	Suspend: model.TransferSuspended,
	Refund:  model.TransferRefund,
}

const relatedType = "transfer_record"

type Service struct {
	db       *gorm.DB
	locker   lock.Locker
	notifier notify.Notifier
	store    storage.Store
	log      *slog.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, locker lock.Locker, notifier notify.Notifier, store storage.Store, log *slog.Logger) *Service {
	return &Service{
		db:       db,
		locker:   locker,
		notifier: notifier,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

// AccountKeys 账户余额锁键，同一笔转账涉及的账户一次性加锁
func AccountKeys(refs ...model.Ref) []string {
	keys := make([]string, 0, len(refs))
	for _, r := range refs {
		keys = append(keys, r.LockKey())
	}
	return keys
}

// Move 在调用方事务中立即完成一笔转账，生成 ACCEPTED 记录。调用方需持有双方账户锁
func Move(tx *gorm.DB, from, to model.Ref, amount float64, message string, activityID *uint, now time.Time) (*model.TransferRecord, error) {
	amount = model.RoundPoint(amount)
	if amount <= 0 {
		return nil, response.ErrNonPositiveAmount
	}
	if _, err := model.AdjustBalance(tx, from, -amount); err != nil {
		return nil, err
	}
	if _, err := model.AdjustBalance(tx, to, amount); err != nil {
		return nil, err
	}
	rec := model.NewTransferRecord(from, to, amount, message, activityID, model.TransferAccepted, now)
	return rec, tx.Create(rec).Error
}

// Owe 在调用方事务中记一笔待确认的欠款，接收方确认时才扣 from 的余额
func Owe(tx *gorm.DB, from, to model.Ref, amount float64, message string, activityID *uint, now time.Time) (*model.TransferRecord, error) {
	amount = model.RoundPoint(amount)
	if amount <= 0 {
		return nil, response.ErrNonPositiveAmount
	}
	rec := model.NewTransferRecord(from, to, amount, message, activityID, model.TransferWaiting, now)
	return rec, tx.Create(rec).Error
}

// ConfirmEvent 通知接收方确认一笔 WAITING 转账
func ConfirmEvent(rec *model.TransferRecord) notify.Event {
	return notify.Event{
		Receiver:    rec.Recipient(),
		Sender:      rec.Proposer(),
		Title:       notify.TitleTransferConfirm,
		Content:     fmt.Sprintf("收到 %.1f 元气值的转账，请确认", rec.Amount),
		Type:        notify.NeedDo,
		RelatedType: relatedType,
		RelatedID:   rec.ID,
	}
}

// ProposeTransfer 发起转账，等待接收方确认，此时不动余额
func (s *Service) ProposeTransfer(ctx context.Context, proposer, recipient model.Ref, amount float64, message string, activityID *uint) (*model.TransferRecord, error) {
	amount = model.RoundPoint(amount)
	if amount <= 0 {
		return nil, response.ErrNonPositiveAmount
	}
	if !proposer.Valid() || !recipient.Valid() {
		return nil, response.ErrInvalidRequest.WithTips("账户无效")
	}
	if proposer == recipient {
		return nil, response.ErrInvalidRequest.WithTips("不能向自己转账")
	}

	db := s.db.WithContext(ctx)
	for _, ref := range []model.Ref{proposer, recipient} {
		if _, err := model.LoadBalance(db, ref); err != nil {
			return nil, database.Wrap(err)
		}
	}

	rec := model.NewTransferRecord(proposer, recipient, amount, message, activityID, model.TransferWaiting, s.now())
	if err := db.Create(rec).Error; err != nil {
		return nil, database.Wrap(err)
	}

	s.log.Info("转账已发起", "record_id", rec.ID, "proposer", proposer.String(), "recipient", recipient.String(), "amount", amount)
	notify.Emit(ctx, s.notifier, s.log, ConfirmEvent(rec))
	return rec, nil
}

func (s *Service) load(ctx context.Context, id uint) (*model.TransferRecord, error) {
	var rec model.TransferRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, database.Wrap(err)
	}
	return &rec, nil
}

// lockWaiting 持锁事务中重新读取，非 WAITING 返回 ErrAlreadySettled
func lockWaiting(tx *gorm.DB, id uint) (*model.TransferRecord, error) {
	var rec model.TransferRecord
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, id).Error; err != nil {
		return nil, err
	}
	if rec.Status != model.TransferWaiting {
		return nil, response.ErrAlreadySettled
	}
	return &rec, nil
}

func finish(tx *gorm.DB, rec *model.TransferRecord, status model.TransferStatus, now time.Time) error {
	res := tx.Model(&model.TransferRecord{}).
		Where("id = ? AND status = ?", rec.ID, model.TransferWaiting).
		Updates(map[string]any{"status": status, "finish_time": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return response.ErrAlreadySettled
	}
	rec.Status = status
	rec.FinishTime = &now
	return nil
}

// SettleTransfer 接收方处理转账。ACCEPT 时原子地扣减并入账，余额不足则整体回滚
func (s *Service) SettleTransfer(ctx context.Context, id uint, decision Decision) (*model.TransferRecord, error) {
	ctx, span := otel.Start(ctx, "transfer.settle")
	defer span.End()
	span.SetAttributes(attribute.String("decision", string(decision)))

	status, ok := decisionStatus[decision]
	if !ok {
		return nil, response.ErrInvalidDecision
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	keys := append(AccountKeys(rec.Proposer(), rec.Recipient()), rec.LockKey())
	err = s.locker.WithLock(ctx, keys, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			rec, err = lockWaiting(tx, id)
			if err != nil {
				return err
			}
			if decision == Accept {
				if _, err := model.AdjustBalance(tx, rec.Proposer(), -rec.Amount); err != nil {
					return err
				}
				if _, err := model.AdjustBalance(tx, rec.Recipient(), rec.Amount); err != nil {
					return err
				}
			}
			return finish(tx, rec, status, s.now())
		})
	})
	if err != nil {
		if errors.Is(err, model.ErrNegativeBalance) {
			s.log.Warn("转账余额不足", "record_id", id)
		}
		return nil, database.Wrap(err)
	}

	s.log.Info("转账已处理", "record_id", id, "decision", decision, "amount", rec.Amount)
	notify.Emit(ctx, s.notifier, s.log, notify.Event{
		Receiver:    rec.Proposer(),
		Sender:      rec.Recipient(),
		Title:       notify.TitleTransferFeedback,
		Content:     fmt.Sprintf("%.1f 元气值的转账%s", rec.Amount, rec.Status),
		Type:        notify.NeedRead,
		RelatedType: relatedType,
		RelatedID:   rec.ID,
	})
	return rec, nil
}

// CancelTransfer 发起方撤回尚未处理的转账
func (s *Service) CancelTransfer(ctx context.Context, id uint, proposer model.Ref) (*model.TransferRecord, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Proposer() != proposer {
		return nil, response.ErrForbidden.WithTips("只能撤回自己发起的转账")
	}

	keys := append(AccountKeys(rec.Proposer(), rec.Recipient()), rec.LockKey())
	err = s.locker.WithLock(ctx, keys, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			rec, err = lockWaiting(tx, id)
			if err != nil {
				return err
			}
			return finish(tx, rec, model.TransferSuspended, s.now())
		})
	})
	if err != nil {
		return nil, database.Wrap(err)
	}

	s.log.Info("转账已撤回", "record_id", id)
	notify.Emit(ctx, s.notifier, s.log, notify.Event{
		Receiver:    rec.Recipient(),
		Sender:      rec.Proposer(),
		Title:       notify.TitleTransferFeedback,
		Content:     fmt.Sprintf("%.1f 元气值的转账已被撤回", rec.Amount),
		Type:        notify.NeedRead,
		RelatedType: relatedType,
		RelatedID:   rec.ID,
	})
	return rec, nil
}

type Direction string

const (
	DirectionAll Direction = ""
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

type RecordFilter struct {
	Direction Direction
	Status    *model.TransferStatus
}

// Records 账户的转账记录，按发起时间倒序
func (s *Service) Records(ctx context.Context, ref model.Ref, f RecordFilter) ([]model.TransferRecord, error) {
	q := s.db.WithContext(ctx).Model(&model.TransferRecord{})
	out := s.db.Where("proposer_kind = ? AND proposer_id = ?", ref.Kind, ref.ID)
	in := s.db.Where("recipient_kind = ? AND recipient_id = ?", ref.Kind, ref.ID)
	switch f.Direction {
	case DirectionOut:
		q = q.Where(out)
	case DirectionIn:
		q = q.Where(in)
	default:
		q = q.Where(out.Or(in))
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	var records []model.TransferRecord
	err := q.Order("start_time DESC, id DESC").Find(&records).Error
	return records, database.Wrap(err)
}
