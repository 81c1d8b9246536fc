package transfer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/notify"
	"yqpoint-system/internal/global/storage"
	"yqpoint-system/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExport(t *testing.T) {
	db := test.NewDB(t)
	store := storage.NewLocal(t.TempDir(), "/exports")
	svc := NewService(db, lock.NewLocalLocker(time.Second), notify.Nop, store, logger.Discard())
	ctx := context.Background()
	p := test.CreatePerson(t, db, 10)
	o := test.CreateOrg(t, db, 0)
	rec, err := svc.ProposeTransfer(ctx, p.Ref(), o.Ref(), 2, "社费", nil)
	require.NoError(t, err)
	_, err = svc.SettleTransfer(ctx, rec.ID, Accept)
	require.NoError(t, err)

	result, err := svc.Export(ctx, p.Ref())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Key)
	assert.Equal(t, "/exports/"+result.Key, result.URL)

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("转账记录")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"编号", "发起方", "接收方", "数额", "状态", "留言", "发起时间", "完成时间"}, rows[0])
	assert.Equal(t, p.Name, rows[1][1])
	assert.Equal(t, o.Name, rows[1][2])
	assert.Equal(t, "已接收", rows[1][4])
}

func TestExport_WithoutStore(t *testing.T) {
	e := setup(t)
	p := test.CreatePerson(t, e.db, 0)

	result, err := e.svc.Export(context.Background(), p.Ref())
	require.NoError(t, err)
	assert.Empty(t, result.URL)
	assert.NotEmpty(t, result.Data)
}
