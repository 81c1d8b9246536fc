package activity

import (
	"context"
	"testing"
	"time"

	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/notify"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/global/term"
	"yqpoint-system/internal/model"
	"yqpoint-system/internal/module/transfer"
	"yqpoint-system/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	schedule := model.Activity{
		ApplyEnd: now.Add(day),
		Start:    now.Add(2 * day),
		End:      now.Add(3 * day),
	}
	beforeApplyEnd := now
	beforeStart := now.Add(36 * time.Hour)
	inSession := now.Add(60 * time.Hour)
	afterEnd := now.Add(4 * day)

	cases := []struct {
		name   string
		status model.ActivityStatus
		at     time.Time
		want   model.ActivityStatus
	}{
		{"applying stays open", model.ActivityApplying, beforeApplyEnd, model.ActivityApplying},
		{"applying closes", model.ActivityApplying, beforeStart, model.ActivityWaiting},
		{"waiting starts", model.ActivityWaiting, inSession, model.ActivityProgressing},
		{"applying jumps to progressing", model.ActivityApplying, inSession, model.ActivityProgressing},
		{"progressing ends", model.ActivityProgressing, afterEnd, model.ActivityEnd},
		{"never moves backwards", model.ActivityProgressing, beforeApplyEnd, model.ActivityProgressing},
		{"reviewing waits for approval", model.ActivityReviewing, beforeStart, model.ActivityReviewing},
		{"reviewing past start follows time", model.ActivityReviewing, inSession, model.ActivityProgressing},
		{"canceled is terminal", model.ActivityCanceled, inSession, model.ActivityCanceled},
		{"abort is terminal", model.ActivityAbort, inSession, model.ActivityAbort},
		{"reject is terminal", model.ActivityReject, afterEnd, model.ActivityReject},
		{"end is terminal", model.ActivityEnd, inSession, model.ActivityEnd},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := schedule
			a.Status = tc.status
			assert.Equal(t, tc.want, NextStatus(&a, tc.at))
		})
	}
}

func TestCreateActivity(t *testing.T) {
	e := setup(t)
	start := now.Add(3 * day)

	a, err := e.svc.CreateActivity(context.Background(), fall, e.org.ID, Input{
		Title:            "秋季登山",
		ExamineTeacherID: e.teacher.ID,
		EndBefore:        model.EndBeforeOneDay,
		Start:            start,
		End:              start.Add(4 * time.Hour),
		Capacity:         30,
		YQPoint:          2.25,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ActivityReviewing, a.Status)
	assert.True(t, a.ApplyEnd.Equal(start.Add(-day)))
	assert.Equal(t, 2.3, a.YQPoint)
	assert.Equal(t, fall.Year, a.Year)
	assert.Equal(t, fall.Semester, a.Semester)

	events := e.rec.ByTitle(notify.TitleVerifyInform)
	require.Len(t, events, 1)
	assert.Equal(t, e.teacher.Ref(), events[0].Receiver)
	assert.Equal(t, notify.NeedDo, events[0].Type)
}

func TestCreateActivity_Invalid(t *testing.T) {
	e := setup(t)
	student := test.CreatePerson(t, e.db, 0)
	start := now.Add(3 * day)
	late := start.Add(time.Hour)
	base := Input{
		Title:            "讲座",
		ExamineTeacherID: e.teacher.ID,
		Start:            start,
		End:              start.Add(2 * time.Hour),
		Capacity:         model.UnlimitedCapacity,
	}

	cases := []struct {
		name   string
		mutate func(*Input)
		want   *response.Error
	}{
		{"end before start", func(in *Input) { in.End = start.Add(-time.Hour) }, response.ErrInvalidSchedule},
		{"apply end after start", func(in *Input) { in.ApplyEnd = &late }, response.ErrInvalidSchedule},
		{"start in the past", func(in *Input) {
			in.Start = now.Add(-time.Hour)
			in.End = now.Add(time.Hour)
		}, response.ErrInvalidSchedule},
		{"zero capacity", func(in *Input) { in.Capacity = 0 }, response.ErrInvalidRequest},
		{"empty title", func(in *Input) { in.Title = " " }, response.ErrInvalidRequest},
		{"reviewer not a teacher", func(in *Input) { in.ExamineTeacherID = student.ID }, response.ErrInvalidRequest},
		{"reviewer missing", func(in *Input) { in.ExamineTeacherID = 404 }, response.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := e.svc.CreateActivity(context.Background(), fall, e.org.ID, in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var n int64
	require.NoError(t, e.db.Model(&model.Activity{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestReview(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a := e.activity(t, model.ActivityReviewing)
	other := test.CreateTeacher(t, e.db)

	_, err := e.svc.Review(ctx, a.ID, other.ID, true)
	assert.ErrorIs(t, err, response.ErrForbidden)

	reviewed, err := e.svc.Review(ctx, a.ID, e.teacher.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.ActivityApplying, reviewed.Status)
	assert.True(t, e.reload(t, a.ID).Valid)

	_, err = e.svc.Review(ctx, a.ID, e.teacher.ID, false)
	assert.ErrorIs(t, err, response.ErrAlreadyResolved)
	assert.Equal(t, model.ActivityApplying, e.reload(t, a.ID).Status)

	events := e.rec.ByTitle(notify.TitleVerifyInform)
	require.Len(t, events, 1)
	assert.Equal(t, e.org.Ref(), events[0].Receiver)
}

func TestReview_RejectAndLateApproval(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	rejected, err := e.svc.Review(ctx, e.activity(t, model.ActivityReviewing).ID, e.teacher.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.ActivityReject, rejected.Status)

	// 报名截止后才通过审核，直接进入等待开始
	late := e.activity(t, model.ActivityReviewing, func(a *model.Activity) { a.ApplyEnd = now.Add(-time.Hour) })
	approved, err := e.svc.Review(ctx, late.ID, e.teacher.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.ActivityWaiting, approved.Status)
}

func TestAbort(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	other := test.CreateOrg(t, e.db, 0)
	a := e.activity(t, model.ActivityReviewing)

	_, err := e.svc.Abort(ctx, a.ID, other.ID)
	assert.ErrorIs(t, err, response.ErrForbidden)

	aborted, err := e.svc.Abort(ctx, a.ID, e.org.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ActivityAbort, aborted.Status)

	events := e.rec.ByTitle(notify.TitleVerifyInform)
	require.Len(t, events, 1)
	assert.Equal(t, e.teacher.Ref(), events[0].Receiver)
	assert.Equal(t, e.org.Ref(), events[0].Sender)
	assert.Equal(t, a.ID, events[0].RelatedID)

	_, err = e.svc.Abort(ctx, e.activity(t, model.ActivityApplying).ID, e.org.ID)
	assert.ErrorIs(t, err, response.ErrActivityLocked)
	assert.Len(t, e.rec.ByTitle(notify.TitleVerifyInform), 1)
}

func TestCancel_RefundsPaidParticipants(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a := e.activity(t, model.ActivityApplying, withPrice(3))
	alice := test.CreatePerson(t, e.db, 5)
	bob := test.CreatePerson(t, e.db, 10)
	for _, p := range []*model.Person{alice, bob} {
		_, err := e.svc.Register(ctx, a.ID, p.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 6.0, test.Balance(t, e.db, e.org.Ref()))

	other := test.CreateOrg(t, e.db, 0)
	_, err := e.svc.Cancel(ctx, a.ID, other.ID)
	assert.ErrorIs(t, err, response.ErrForbidden)

	canceled, err := e.svc.Cancel(ctx, a.ID, e.org.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ActivityCanceled, canceled.Status)
	assert.Equal(t, 5.0, test.Balance(t, e.db, alice.Ref()))
	assert.Equal(t, 10.0, test.Balance(t, e.db, bob.Ref()))
	assert.Equal(t, 0.0, test.Balance(t, e.db, e.org.Ref()))

	participants, err := e.svc.Participants(ctx, a.ID)
	require.NoError(t, err)
	for _, p := range participants {
		assert.Equal(t, model.ParticipantCanceled, p.Status)
		assert.Nil(t, p.LiveKey)
	}

	events := e.rec.ByTitle(notify.TitleActivityInform)
	require.Len(t, events, 3)
	receivers := []model.Ref{}
	for _, ev := range events {
		receivers = append(receivers, ev.Receiver)
		assert.Equal(t, events[0].BulkID, ev.BulkID)
	}
	assert.ElementsMatch(t, []model.Ref{e.org.Ref(), alice.Ref(), bob.Ref()}, receivers)

	_, err = e.svc.Cancel(ctx, a.ID, e.org.ID)
	assert.ErrorIs(t, err, response.ErrActivityLocked)
}

func TestCancel_OrgShortOfFundsOwesRefund(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a := e.activity(t, model.ActivityApplying, withPrice(3))
	alice := test.CreatePerson(t, e.db, 5)
	bob := test.CreatePerson(t, e.db, 10)
	for _, p := range []*model.Person{alice, bob} {
		_, err := e.svc.Register(ctx, a.ID, p.ID)
		require.NoError(t, err)
	}
	// 组织已花掉大部分报名费
	test.SetBalance(t, e.db, e.org.Ref(), 4)

	canceled, err := e.svc.Cancel(ctx, a.ID, e.org.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ActivityCanceled, canceled.Status)
	assert.Equal(t, model.ActivityCanceled, e.reload(t, a.ID).Status)
	assert.Equal(t, 5.0, test.Balance(t, e.db, alice.Ref()))
	assert.Equal(t, 7.0, test.Balance(t, e.db, bob.Ref()))
	assert.Equal(t, 1.0, test.Balance(t, e.db, e.org.Ref()))

	var owed []model.TransferRecord
	require.NoError(t, e.db.Where("status = ?", model.TransferWaiting).Find(&owed).Error)
	require.Len(t, owed, 1)
	assert.Equal(t, e.org.Ref(), owed[0].Proposer())
	assert.Equal(t, bob.Ref(), owed[0].Recipient())
	assert.Equal(t, 3.0, owed[0].Amount)
	require.NotNil(t, owed[0].ActivityID)
	assert.Equal(t, a.ID, *owed[0].ActivityID)

	confirms := e.rec.ByTitle(notify.TitleTransferConfirm)
	require.Len(t, confirms, 1)
	assert.Equal(t, bob.Ref(), confirms[0].Receiver)
	assert.Equal(t, owed[0].ID, confirms[0].RelatedID)

	// 组织补足余额后，参与者确认收款
	ledger := transfer.NewService(e.db, lock.NewLocalLocker(5*time.Second), e.rec, nil, logger.Discard())
	_, err = ledger.SettleTransfer(ctx, owed[0].ID, transfer.Accept)
	assert.ErrorIs(t, err, response.ErrInsufficientBalance)

	test.SetBalance(t, e.db, e.org.Ref(), 3)
	settled, err := ledger.SettleTransfer(ctx, owed[0].ID, transfer.Accept)
	require.NoError(t, err)
	assert.Equal(t, model.TransferAccepted, settled.Status)
	assert.Equal(t, 10.0, test.Balance(t, e.db, bob.Ref()))
	assert.Equal(t, 0.0, test.Balance(t, e.db, e.org.Ref()))
}

func TestCancel_NotOpened(t *testing.T) {
	e := setup(t)
	for _, status := range []model.ActivityStatus{model.ActivityReviewing, model.ActivityEnd} {
		_, err := e.svc.Cancel(context.Background(), e.activity(t, status).ID, e.org.ID)
		assert.ErrorIs(t, err, response.ErrActivityLocked, status)
	}
}

func TestAdvance(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a := e.activity(t, model.ActivityApplying)
	p := test.CreatePerson(t, e.db, 0)
	_, err := e.svc.Register(ctx, a.ID, p.ID)
	require.NoError(t, err)

	advanced, changed, err := e.svc.Advance(ctx, a.ID, now.Add(36*time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.ActivityWaiting, advanced.Status)
	assert.Len(t, e.rec.ByTitle(notify.TitleActivityInform), 2)

	_, changed, err = e.svc.Advance(ctx, a.ID, now.Add(36*time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, e.rec.ByTitle(notify.TitleActivityInform), 2)
}

func TestAdvanceAll(t *testing.T) {
	e := setup(t)
	open := e.activity(t, model.ActivityApplying)
	waiting := e.activity(t, model.ActivityWaiting)
	canceled := e.activity(t, model.ActivityCanceled)
	reviewing := e.activity(t, model.ActivityReviewing)
	spring := e.activity(t, model.ActivityApplying, func(a *model.Activity) { a.Semester = model.SemesterSpring })
	annual := e.activity(t, model.ActivityApplying, func(a *model.Activity) { a.Semester = model.SemesterAnnual })

	changed, err := e.svc.AdvanceAll(context.Background(), fall, now.Add(60*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, changed)

	want := map[uint]model.ActivityStatus{
		open.ID:      model.ActivityProgressing,
		waiting.ID:   model.ActivityProgressing,
		canceled.ID:  model.ActivityCanceled,
		reviewing.ID: model.ActivityProgressing,
		spring.ID:    model.ActivityApplying,
		annual.ID:    model.ActivityProgressing,
	}
	for id, status := range want {
		assert.Equal(t, status, e.reload(t, id).Status, "activity %d", id)
	}

	changed, err = e.svc.AdvanceAll(context.Background(), term.New(2021, model.SemesterSpring), now.Add(60*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
}

func TestUpdate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a := e.activity(t, model.ActivityApplying, withCapacity(5), withPrice(1))
	title := "迎新晚会（改期）"
	price := 1.5

	updated, err := e.svc.Update(ctx, a.ID, e.org.ID, Patch{Title: &title, YQPoint: &price})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, 1.5, updated.YQPoint)

	start := now.Add(5 * day)
	end := start.Add(2 * time.Hour)
	updated, err = e.svc.Update(ctx, a.ID, e.org.ID, Patch{Start: &start, End: &end})
	require.NoError(t, err)
	assert.True(t, updated.ApplyEnd.Equal(start.Add(-time.Hour)))
}

func TestUpdate_Rejected(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	open := e.activity(t, model.ActivityApplying, withCapacity(3))
	for i := 0; i < 2; i++ {
		_, err := e.svc.Register(ctx, open.ID, test.CreatePerson(t, e.db, 0).ID)
		require.NoError(t, err)
	}
	bidding := e.activity(t, model.ActivityReviewing, func(a *model.Activity) { a.Bidding = true })
	waiting := e.activity(t, model.ActivityWaiting)

	one, price := 1, 2.0
	past := now.Add(-time.Hour)
	tooEarly := now.Add(time.Hour)

	_, err := e.svc.Update(ctx, open.ID, e.org.ID, Patch{Capacity: &one})
	assert.ErrorIs(t, err, response.ErrCapacityTooSmall)
	_, err = e.svc.Update(ctx, bidding.ID, e.org.ID, Patch{YQPoint: &price})
	assert.ErrorIs(t, err, response.ErrBiddingPriceLocked)
	_, err = e.svc.Update(ctx, waiting.ID, e.org.ID, Patch{YQPoint: &price})
	assert.ErrorIs(t, err, response.ErrActivityLocked)
	_, err = e.svc.Update(ctx, open.ID, e.org.ID, Patch{Start: &past})
	assert.ErrorIs(t, err, response.ErrInvalidSchedule)
	_, err = e.svc.Update(ctx, open.ID, e.org.ID, Patch{End: &tooEarly})
	assert.ErrorIs(t, err, response.ErrInvalidSchedule)
	_, err = e.svc.Update(ctx, open.ID, test.CreateOrg(t, e.db, 0).ID, Patch{YQPoint: &price})
	assert.ErrorIs(t, err, response.ErrForbidden)

	stored := e.reload(t, open.ID)
	assert.Equal(t, 3, stored.Capacity)
	assert.Equal(t, 2, stored.CurrentParticipants)
}
