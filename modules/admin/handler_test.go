package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearclaim/backend/modules/admin"
	"github.com/clearclaim/backend/pkg/billing"
	"github.com/clearclaim/backend/pkg/entitlement"
	"github.com/clearclaim/backend/pkg/membership"
	"github.com/clearclaim/backend/pkg/usage"
)

type fixture struct {
	handler http.Handler
	members *membership.Service
	meter   *usage.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	resolver, err := billing.NewResolver(billing.PriceMap{"pri_pro": entitlement.TierPro}, entitlement.TierStarter)
	require.NoError(t, err)
	members := membership.NewService(membership.NewMemoryStore(), resolver)

	clock := func() time.Time { return time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC) }
	meter := usage.NewService(usage.NewMemoryStore(), usage.WithClock(clock))

	authorize := func(r *http.Request) error {
		if r.Header.Get("X-Admin-Token") != "operator" {
			return errors.New("not an operator")
		}
		return nil
	}

	svc := admin.New(members, meter, authorize, nil)
	return fixture{handler: svc.Handler(), members: members, meter: meter}
}

func (f fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("X-Admin-Token", "operator")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestGuard(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/usage", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "unauthorized operators are rejected")
}

func TestUsageForDate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user, err := f.members.Provision(context.Background(), "heavy@example.com", entitlement.TierPro, "test")
	require.NoError(t, err)
	_, err = f.meter.Increment(context.Background(), user.ID, 12)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/usage?date=2026-08-31", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Date     string `json:"date"`
		Counters []struct {
			UserID string `json:"user_id"`
			Used   int64  `json:"used"`
		} `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2026-08-31", resp.Date)
	require.Len(t, resp.Counters, 1)
	assert.Equal(t, user.ID.String(), resp.Counters[0].UserID)
	assert.Equal(t, int64(12), resp.Counters[0].Used)

	t.Run("invalid date", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/usage?date=31-08-2026", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUsageReset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user, err := f.members.Provision(context.Background(), "reset@example.com", entitlement.TierStarter, "test")
	require.NoError(t, err)
	_, err = f.meter.Increment(context.Background(), user.ID, 7)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/usage/reset", `{"date":"2026-08-31"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	used, err := f.meter.Used(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), used)

	t.Run("missing date", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/usage/reset", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user, err := f.members.Provision(context.Background(), "history@example.com", entitlement.TierPro, "test")
	require.NoError(t, err)
	_, err = f.meter.Increment(context.Background(), user.ID, 5)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/users/history@example.com/usage?days=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Email   string `json:"email"`
		Tier    string `json:"tier"`
		History []struct {
			Date string `json:"date"`
			Used int64  `json:"used"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "history@example.com", resp.Email)
	assert.Equal(t, "pro", resp.Tier)
	require.Len(t, resp.History, 2)
	assert.Equal(t, "2026-08-31", resp.History[0].Date)
	assert.Equal(t, int64(5), resp.History[0].Used)
	assert.Equal(t, int64(0), resp.History[1].Used)

	t.Run("unknown user", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/users/nobody@example.com/usage", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSetTier(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/users/vip@example.com/tier", `{"tier":"enterprise","reason":"contract signed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := f.members.UserByEmail(context.Background(), "vip@example.com")
	require.NoError(t, err)
	assert.Equal(t, entitlement.TierEnterprise, user.Tier)

	t.Run("unknown tier", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/users/vip@example.com/tier", `{"tier":"platinum"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
