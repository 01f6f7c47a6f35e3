package claims_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearclaim/backend/modules/claims"
	"github.com/clearclaim/backend/pkg/entitlement"
	"github.com/clearclaim/backend/pkg/gating"
	"github.com/clearclaim/backend/pkg/membership"
	"github.com/clearclaim/backend/pkg/usage"
)

func testCatalog(t *testing.T) *entitlement.Catalog {
	t.Helper()
	catalog, err := entitlement.NewCatalog(context.Background(), entitlement.NewInMemSource(map[entitlement.Tier]entitlement.Record{
		entitlement.TierFree: {
			Limits: map[entitlement.Limit]int64{
				entitlement.LimitDailyChecks:       3,
				entitlement.LimitCountriesPerCheck: 1,
			},
		},
		entitlement.TierStarter: {
			Limits: map[entitlement.Limit]int64{
				entitlement.LimitDailyChecks:       20,
				entitlement.LimitCountriesPerCheck: 1,
			},
		},
		entitlement.TierPro: {
			Limits: map[entitlement.Limit]int64{
				entitlement.LimitDailyChecks:       entitlement.Unlimited,
				entitlement.LimitCountriesPerCheck: 5,
			},
			Capabilities: []entitlement.Capability{entitlement.CapabilityProTools},
		},
		entitlement.TierEnterprise: {
			Limits: map[entitlement.Limit]int64{
				entitlement.LimitDailyChecks:       entitlement.Unlimited,
				entitlement.LimitCountriesPerCheck: entitlement.Unlimited,
			},
			Capabilities: []entitlement.Capability{entitlement.CapabilityProTools},
		},
	}))
	require.NoError(t, err)
	return catalog
}

func asUser(tier entitlement.Tier) (claims.CurrentUser, *membership.User) {
	user := &membership.User{ID: uuid.New(), Email: "user@example.com", Tier: tier, Active: true}
	return func(r *http.Request) (*membership.User, error) { return user, nil }, user
}

func newHandler(t *testing.T, tier entitlement.Tier) http.Handler {
	t.Helper()
	clock := func() time.Time { return time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC) }
	meter := usage.NewService(usage.NewMemoryStore(), usage.WithClock(clock))
	engine := gating.NewEngine(testCatalog(t), meter)
	current, _ := asUser(tier)
	return claims.New(engine, meter, current, "https://clearclaim.example.com/upgrade", nil).Handler()
}

func doCheck(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleCheck(t *testing.T) {
	t.Parallel()

	t.Run("allowed check reports usage", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, entitlement.TierStarter)
		rec := doCheck(t, h, `{"name":"acme","countries":["US"]}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			OK        bool   `json:"ok"`
			Tier      string `json:"tier"`
			Used      int64  `json:"used"`
			Remaining int64  `json:"remaining"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, "starter", resp.Tier)
		assert.Equal(t, int64(1), resp.Used)
		assert.Equal(t, int64(19), resp.Remaining)
	})

	t.Run("exhausted quota answers 402 with the paywall payload", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, entitlement.TierFree)
		for range 3 {
			rec := doCheck(t, h, `{"countries":["US"]}`)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := doCheck(t, h, `{"countries":["US"]}`)
		require.Equal(t, http.StatusPaymentRequired, rec.Code)

		var resp struct {
			Detail     string `json:"detail"`
			Code       string `json:"code"`
			Plan       string `json:"plan"`
			Limit      int64  `json:"limit"`
			Remaining  int64  `json:"remaining"`
			UpgradeURL string `json:"upgrade_url"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "DAILY_LIMIT_EXCEEDED", resp.Code)
		assert.Equal(t, "free", resp.Plan)
		assert.Equal(t, int64(3), resp.Limit)
		assert.Equal(t, int64(0), resp.Remaining)
		assert.Equal(t, "https://clearclaim.example.com/upgrade", resp.UpgradeURL)
		assert.NotEmpty(t, resp.Detail)
	})

	t.Run("too many countries answers 402 without spending quota", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, entitlement.TierStarter)
		rec := doCheck(t, h, `{"countries":["US","GB","DE"]}`)
		require.Equal(t, http.StatusPaymentRequired, rec.Code)

		var resp struct {
			Code  string `json:"code"`
			Limit int64  `json:"limit"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "STRUCTURAL_LIMIT_EXCEEDED", resp.Code)
		assert.Equal(t, int64(1), resp.Limit)

		// The denied request must not have consumed the day's quota.
		ok := doCheck(t, h, `{"countries":["US"]}`)
		require.Equal(t, http.StatusOK, ok.Code)
		var after struct {
			Used int64 `json:"used"`
		}
		require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &after))
		assert.Equal(t, int64(1), after.Used)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, entitlement.TierPro)
		assert.Equal(t, http.StatusBadRequest, doCheck(t, h, `{"countries":[]}`).Code)
		assert.Equal(t, http.StatusBadRequest, doCheck(t, h, `not json`).Code)
	})

	t.Run("unauthenticated request answers 401", func(t *testing.T) {
		t.Parallel()

		clock := func() time.Time { return time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC) }
		meter := usage.NewService(usage.NewMemoryStore(), usage.WithClock(clock))
		engine := gating.NewEngine(testCatalog(t), meter)
		anon := func(r *http.Request) (*membership.User, error) { return nil, errors.New("no session") }
		h := claims.New(engine, meter, anon, "", nil).Handler()

		rec := doCheck(t, h, `{"countries":["US"]}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleUsage(t *testing.T) {
	t.Parallel()

	t.Run("reports consumption without spending quota", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, entitlement.TierStarter)
		for range 2 {
			require.Equal(t, http.StatusOK, doCheck(t, h, `{"countries":["US"]}`).Code)
		}

		var resp struct {
			Date      string `json:"date"`
			Tier      string `json:"tier"`
			Used      int64  `json:"used"`
			Remaining int64  `json:"remaining"`
		}
		for range 2 {
			// Polling usage twice must not move the counters.
			req := httptest.NewRequest(http.MethodGet, "/usage", nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "2026-08-31", resp.Date)
			assert.Equal(t, "starter", resp.Tier)
			assert.Equal(t, int64(2), resp.Used)
			assert.Equal(t, int64(18), resp.Remaining)
		}
	})

	t.Run("unlimited tier reports -1 remaining", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, entitlement.TierPro)
		req := httptest.NewRequest(http.MethodGet, "/usage", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Used      int64 `json:"used"`
			Remaining int64 `json:"remaining"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(0), resp.Used)
		assert.Equal(t, entitlement.Unlimited, resp.Remaining)
	})
}

func TestHandleProFeature(t *testing.T) {
	t.Parallel()

	t.Run("starter is told to upgrade", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, entitlement.TierStarter)
		req := httptest.NewRequest(http.MethodGet, "/pro-feature", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusPaymentRequired, rec.Code)
		var resp struct {
			Code      string `json:"code"`
			Plan      string `json:"plan"`
			Limit     *int64 `json:"limit"`
			Remaining *int64 `json:"remaining"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "UPGRADE_REQUIRED", resp.Code)
		assert.Equal(t, "starter", resp.Plan)
		assert.Nil(t, resp.Limit, "capability denial carries no numeric limit")
		assert.Nil(t, resp.Remaining)
	})

	t.Run("pro gets through", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, entitlement.TierPro)
		req := httptest.NewRequest(http.MethodGet, "/pro-feature", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			OK      bool   `json:"ok"`
			Feature string `json:"feature"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, "pro_tools", resp.Feature)
	})
}
