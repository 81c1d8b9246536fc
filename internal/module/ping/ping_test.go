package ping

import (
	"context"
	"net/http"
	"testing"

	"yqpoint-system/internal/global/logger"
	"yqpoint-system/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker(t *testing.T) {
	db := test.NewDB(t)
	client, mr := test.NewRedis(t)
	ch := &Checker{DB: db, Redis: client}

	status, err := ch.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Status{Database: "ok", Redis: "ok"}, status)

	mr.Close()
	status, err = ch.Check(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "down", status.Redis)
}

func TestChecker_WithoutRedis(t *testing.T) {
	status, err := (&Checker{DB: test.NewDB(t)}).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "disabled", status.Redis)
}

func TestHandler_Health(t *testing.T) {
	log = logger.Discard()
	checker = &Checker{DB: test.NewDB(t)}
	resp := test.DoRequest(t, Health, test.Request{Method: http.MethodGet})
	test.NoError(t, resp)

	resp = test.DoRequest(t, Ping, test.Request{Method: http.MethodGet})
	test.NoError(t, resp)
}
