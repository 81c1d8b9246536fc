package position

import (
	"net/http"
	"strconv"
	"testing"

	"yqpoint-system/config"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"
	"yqpoint-system/test"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useService(t *testing.T) *env {
	e := setup(t)
	cfg := *config.Get()
	cfg.Semester = config.Semester{Year: 2021, Semester: "Fall"}
	config.Set(&cfg)
	svc = e.svc
	log = e.svc.log
	return e
}

func idParams(key string, id uint) gin.Params {
	return gin.Params{{Key: key, Value: strconv.FormatUint(uint64(id), 10)}}
}

func TestHandler_CreateAndResolve(t *testing.T) {
	e := useService(t)
	p := test.CreatePerson(t, e.db, 0)
	o := test.CreateOrg(t, e.db, 0)
	other := test.CreateOrg(t, e.db, 0)

	resp := test.DoRequest(t, CreateApplication, test.Request{
		Body:   CreateApplicationReq{OrgID: o.ID, ApplyType: model.ApplyJoin, Reason: "你好"},
		Claims: test.PersonClaims(p.ID),
	})
	test.NoError(t, resp)
	var created struct {
		ApplyType   model.ApplyType             `json:"apply_type"`
		Application model.MembershipApplication `json:"application"`
	}
	test.DecodeData(t, resp, &created)
	assert.Equal(t, model.DefaultLevel, created.Application.Level)

	resp = test.DoRequest(t, ResolveApplication, test.Request{
		Body:   ResolveApplicationReq{Decision: Approve},
		Params: idParams("id", created.Application.ID),
		Claims: test.OrgClaims(other.ID),
	})
	test.ErrorEqual(t, response.ErrForbidden.WithTips("只能审批本组织的申请"), resp)

	resp = test.DoRequest(t, ResolveApplication, test.Request{
		Body:   ResolveApplicationReq{Decision: Approve},
		Params: idParams("id", created.Application.ID),
		Claims: test.OrgClaims(o.ID),
	})
	test.NoError(t, resp)

	resp = test.DoRequest(t, ListMembers, test.Request{Method: http.MethodGet, Params: idParams("org_id", o.ID)})
	test.NoError(t, resp)
	var members []Member
	test.DecodeData(t, resp, &members)
	require.Len(t, members, 1)
	assert.Equal(t, p.ID, members[0].PersonID)
}

func TestHandler_CreateApplication_RejectsOrgAccount(t *testing.T) {
	e := useService(t)
	o := test.CreateOrg(t, e.db, 0)

	resp := test.DoRequest(t, CreateApplication, test.Request{
		Body:   CreateApplicationReq{OrgID: o.ID, ApplyType: model.ApplyJoin},
		Claims: test.OrgClaims(o.ID),
	})
	assert.Equal(t, response.ErrForbidden.Code, resp.Code)
}

func TestHandler_CreateApplication_Conflict(t *testing.T) {
	e := useService(t)
	p := test.CreatePerson(t, e.db, 0)
	o := test.CreateOrg(t, e.db, 0)
	test.CreatePosition(t, e.db, p.ID, o.ID, 1, 2021, model.SemesterFall)

	resp := test.DoRequest(t, CreateApplication, test.Request{
		Body:   CreateApplicationReq{OrgID: o.ID, ApplyType: model.ApplyJoin},
		Claims: test.PersonClaims(p.ID),
	})
	test.ErrorEqual(t, response.ErrDuplicateActive, resp)
}
