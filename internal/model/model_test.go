package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrganizationType_LevelName(t *testing.T) {
	ot := &OrganizationType{JobNames: []string{"部长", "副部长"}}

	assert.Equal(t, "部长", ot.LevelName(0))
	assert.Equal(t, "副部长", ot.LevelName(1))
	assert.Equal(t, DefaultJobName, ot.LevelName(2))
	assert.Equal(t, DefaultJobName, ot.LevelName(DefaultLevel))
	assert.Equal(t, 1, ot.LevelOf("副部长"))
	assert.Equal(t, 2, ot.LevelOf("干事"))
}

func TestSemester_Covers(t *testing.T) {
	assert.True(t, SemesterAnnual.Covers(SemesterFall))
	assert.True(t, SemesterAnnual.Covers(SemesterSpring))
	assert.True(t, SemesterFall.Covers(SemesterFall))
	assert.False(t, SemesterFall.Covers(SemesterSpring))
	assert.False(t, SemesterFall.Covers(SemesterAnnual))
}

func TestActivity_HasRoom(t *testing.T) {
	assert.True(t, (&Activity{Capacity: UnlimitedCapacity, CurrentParticipants: 1000}).HasRoom())
	assert.True(t, (&Activity{Capacity: 2, CurrentParticipants: 1}).HasRoom())
	assert.False(t, (&Activity{Capacity: 2, CurrentParticipants: 2}).HasRoom())
}

func TestEndBefore_Duration(t *testing.T) {
	assert.Equal(t, time.Hour, EndBeforeOneHour.Duration())
	assert.Equal(t, 24*time.Hour, EndBeforeOneDay.Duration())
	assert.Equal(t, 72*time.Hour, EndBeforeThreeDays.Duration())
	assert.Equal(t, 168*time.Hour, EndBeforeOneWeek.Duration())
}

func TestReviewable(t *testing.T) {
	items := []Reviewable{
		&MembershipApplication{PersonID: 1, ApplyType: ApplyJoin},
		&OrganizationApplication{PersonID: 1, OrgName: "摄影社"},
		&Reimbursement{OrgID: 2, Amount: 10},
	}
	for _, r := range items {
		assert.True(t, r.IsPending(), r.TypeName())
		assert.NotEmpty(t, r.ExtraDisplay())
	}
	assert.Equal(t, OrgRef(2), items[2].Poster())
}

func TestTransferRecord_FinishTime(t *testing.T) {
	now := time.Now()
	waiting := NewTransferRecord(PersonRef(1), OrgRef(2), 1.26, "", nil, TransferWaiting, now)
	accepted := NewTransferRecord(PersonRef(1), OrgRef(2), 1, "", nil, TransferAccepted, now)

	assert.Nil(t, waiting.FinishTime)
	assert.Equal(t, 1.3, waiting.Amount)
	assert.NotNil(t, accepted.FinishTime)
	assert.Equal(t, PersonRef(1), accepted.Proposer())
	assert.Equal(t, OrgRef(2), accepted.Recipient())
}
