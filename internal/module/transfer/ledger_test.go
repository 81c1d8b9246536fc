package transfer

import (
	"context"
	"sync"
	"testing"
	"time"

	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/notify"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"
	"yqpoint-system/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db  *gorm.DB
	svc *Service
	rec *notify.Recorder
}

func setup(t *testing.T) *env {
	db := test.NewDB(t)
	rec := notify.NewRecorder()
	return &env{
		db:  db,
		svc: NewService(db, lock.NewLocalLocker(5*time.Second), rec, nil, logger.Discard()),
		rec: rec,
	}
}

func TestProposeTransfer(t *testing.T) {
	e := setup(t)
	p := test.CreatePerson(t, e.db, 10)
	o := test.CreateOrg(t, e.db, 0)

	rec, err := e.svc.ProposeTransfer(context.Background(), p.Ref(), o.Ref(), 3.26, "活动经费", nil)
	require.NoError(t, err)
	assert.Equal(t, model.TransferWaiting, rec.Status)
	assert.Equal(t, 3.3, rec.Amount)
	assert.Nil(t, rec.FinishTime)
	assert.Equal(t, 10.0, test.Balance(t, e.db, p.Ref()))

	events := e.rec.ByTitle(notify.TitleTransferConfirm)
	require.Len(t, events, 1)
	assert.Equal(t, o.Ref(), events[0].Receiver)
	assert.Equal(t, rec.ID, events[0].RelatedID)
}

func TestProposeTransfer_Invalid(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := test.CreatePerson(t, e.db, 10)
	o := test.CreateOrg(t, e.db, 0)

	for _, amount := range []float64{0, -1, 0.04} {
		_, err := e.svc.ProposeTransfer(ctx, p.Ref(), o.Ref(), amount, "", nil)
		assert.ErrorIs(t, err, response.ErrNonPositiveAmount, "amount %v", amount)
		assert.True(t, response.IsValidation(err))
	}

	_, err := e.svc.ProposeTransfer(ctx, p.Ref(), p.Ref(), 1, "", nil)
	assert.ErrorIs(t, err, response.ErrInvalidRequest)

	_, err = e.svc.ProposeTransfer(ctx, p.Ref(), model.OrgRef(404), 1, "", nil)
	assert.ErrorIs(t, err, response.ErrNotFound)

	var n int64
	require.NoError(t, e.db.Model(&model.TransferRecord{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestSettleTransfer_AcceptConservesBalance(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := test.CreatePerson(t, e.db, 10)
	o := test.CreateOrg(t, e.db, 2.5)
	rec, err := e.svc.ProposeTransfer(ctx, p.Ref(), o.Ref(), 3.3, "", nil)
	require.NoError(t, err)

	settled, err := e.svc.SettleTransfer(ctx, rec.ID, Accept)
	require.NoError(t, err)
	assert.Equal(t, model.TransferAccepted, settled.Status)
	assert.NotNil(t, settled.FinishTime)

	proposerAfter := test.Balance(t, e.db, p.Ref())
	recipientAfter := test.Balance(t, e.db, o.Ref())
	assert.Equal(t, 6.7, proposerAfter)
	assert.Equal(t, 5.8, recipientAfter)
	assert.InDelta(t, 12.5, proposerAfter+recipientAfter, 1e-9)

	feedback := e.rec.ByTitle(notify.TitleTransferFeedback)
	require.Len(t, feedback, 1)
	assert.Equal(t, p.Ref(), feedback[0].Receiver)
}

func TestSettleTransfer_InsufficientBalanceRollsBack(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := test.CreatePerson(t, e.db, 1)
	o := test.CreateOrg(t, e.db, 0)
	rec, err := e.svc.ProposeTransfer(ctx, p.Ref(), o.Ref(), 5, "", nil)
	require.NoError(t, err)

	_, err = e.svc.SettleTransfer(ctx, rec.ID, Accept)
	assert.ErrorIs(t, err, response.ErrInsufficientBalance)

	assert.Equal(t, 1.0, test.Balance(t, e.db, p.Ref()))
	assert.Equal(t, 0.0, test.Balance(t, e.db, o.Ref()))
	var stored model.TransferRecord
	require.NoError(t, e.db.First(&stored, rec.ID).Error)
	assert.Equal(t, model.TransferWaiting, stored.Status)
	assert.Empty(t, e.rec.ByTitle(notify.TitleTransferFeedback))
}

func TestSettleTransfer_OnlyOnce(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := test.CreatePerson(t, e.db, 10)
	o := test.CreateOrg(t, e.db, 0)
	rec, err := e.svc.ProposeTransfer(ctx, p.Ref(), o.Ref(), 4, "", nil)
	require.NoError(t, err)

	_, err = e.svc.SettleTransfer(ctx, rec.ID, Accept)
	require.NoError(t, err)
	_, err = e.svc.SettleTransfer(ctx, rec.ID, Accept)
	assert.ErrorIs(t, err, response.ErrAlreadySettled)
	_, err = e.svc.SettleTransfer(ctx, rec.ID, Refund)
	assert.ErrorIs(t, err, response.ErrAlreadySettled)

	assert.Equal(t, 6.0, test.Balance(t, e.db, p.Ref()))
	assert.Equal(t, 4.0, test.Balance(t, e.db, o.Ref()))
}

func TestSettleTransfer_NonAcceptDecisions(t *testing.T) {
	cases := map[Decision]model.TransferStatus{
		Refuse:  model.TransferRefused,
		Suspend: model.TransferSuspended,
		Refund:  model.TransferRefund,
	}
	for decision, status := range cases {
		t.Run(string(decision), func(t *testing.T) {
			e := setup(t)
			p := test.CreatePerson(t, e.db, 10)
			o := test.CreateOrg(t, e.db, 0)
			rec, err := e.svc.ProposeTransfer(context.Background(), p.Ref(), o.Ref(), 4, "", nil)
			require.NoError(t, err)

			settled, err := e.svc.SettleTransfer(context.Background(), rec.ID, decision)
			require.NoError(t, err)
			assert.Equal(t, status, settled.Status)
			assert.Equal(t, 10.0, test.Balance(t, e.db, p.Ref()))
			assert.Equal(t, 0.0, test.Balance(t, e.db, o.Ref()))
		})
	}
}

func TestSettleTransfer_InvalidDecision(t *testing.T) {
	e := setup(t)
	_, err := e.svc.SettleTransfer(context.Background(), 1, "KEEP")
	assert.ErrorIs(t, err, response.ErrInvalidDecision)
}

func TestSettleTransfer_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := test.CreatePerson(t, e.db, 10)
	o := test.CreateOrg(t, e.db, 0)

	const n = 5
	ids := make([]uint, n)
	for i := range ids {
		rec, err := e.svc.ProposeTransfer(ctx, p.Ref(), o.Ref(), 3, "", nil)
		require.NoError(t, err)
		ids[i] = rec.ID
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i, id := range ids {
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i] = e.svc.SettleTransfer(ctx, id, Accept)
		}(i, id)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, response.ErrInsufficientBalance)
	}
	assert.Equal(t, 3, accepted)
	assert.Equal(t, 1.0, test.Balance(t, e.db, p.Ref()))
	assert.Equal(t, 9.0, test.Balance(t, e.db, o.Ref()))
}

func TestCancelTransfer(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := test.CreatePerson(t, e.db, 10)
	o := test.CreateOrg(t, e.db, 0)
	rec, err := e.svc.ProposeTransfer(ctx, p.Ref(), o.Ref(), 4, "", nil)
	require.NoError(t, err)

	_, err = e.svc.CancelTransfer(ctx, rec.ID, o.Ref())
	assert.ErrorIs(t, err, response.ErrForbidden)

	canceled, err := e.svc.CancelTransfer(ctx, rec.ID, p.Ref())
	require.NoError(t, err)
	assert.Equal(t, model.TransferSuspended, canceled.Status)

	_, err = e.svc.SettleTransfer(ctx, rec.ID, Accept)
	assert.ErrorIs(t, err, response.ErrAlreadySettled)
	assert.Equal(t, 10.0, test.Balance(t, e.db, p.Ref()))
}

func TestMove(t *testing.T) {
	e := setup(t)
	p := test.CreatePerson(t, e.db, 5)
	o := test.CreateOrg(t, e.db, 0)
	activityID := uint(7)

	var rec *model.TransferRecord
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = Move(tx, p.Ref(), o.Ref(), 2, "报名", &activityID, time.Now())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransferAccepted, rec.Status)
	assert.Equal(t, &activityID, rec.ActivityID)
	assert.Equal(t, 3.0, test.Balance(t, e.db, p.Ref()))

	err = e.db.Transaction(func(tx *gorm.DB) error {
		_, err := Move(tx, p.Ref(), o.Ref(), 10, "", nil, time.Now())
		return err
	})
	assert.ErrorIs(t, err, model.ErrNegativeBalance)
	assert.Equal(t, 2.0, test.Balance(t, e.db, o.Ref()))
}

func TestRecords_Direction(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := test.CreatePerson(t, e.db, 10)
	q := test.CreatePerson(t, e.db, 10)
	o := test.CreateOrg(t, e.db, 10)
	_, err := e.svc.ProposeTransfer(ctx, p.Ref(), o.Ref(), 1, "", nil)
	require.NoError(t, err)
	_, err = e.svc.ProposeTransfer(ctx, o.Ref(), p.Ref(), 2, "", nil)
	require.NoError(t, err)
	_, err = e.svc.ProposeTransfer(ctx, q.Ref(), o.Ref(), 3, "", nil)
	require.NoError(t, err)

	all, err := e.svc.Records(ctx, p.Ref(), RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	out, err := e.svc.Records(ctx, p.Ref(), RecordFilter{Direction: DirectionOut})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, out[0].Amount)

	waiting := model.TransferWaiting
	in, err := e.svc.Records(ctx, o.Ref(), RecordFilter{Direction: DirectionIn, Status: &waiting})
	require.NoError(t, err)
	assert.Len(t, in, 2)
}
