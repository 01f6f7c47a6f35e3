package claims

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearclaim/backend/pkg/entitlement"
	"github.com/clearclaim/backend/pkg/gating"
	"github.com/clearclaim/backend/pkg/membership"
	"github.com/clearclaim/backend/pkg/usage"
)

// CurrentUser resolves the authenticated account for a request. The
// surrounding application owns authentication; this module only consumes
// its result.
type CurrentUser func(r *http.Request) (*membership.User, error)

// Service exposes the metered claim-check endpoints.
type Service struct {
	engine      *gating.Engine
	meter       *usage.Service
	currentUser CurrentUser
	upgradeURL  string
	log         *slog.Logger
}

// New creates the claims endpoint group.
// Panics if engine, meter, or currentUser is nil to fail fast during
// initialization.
func New(engine *gating.Engine, meter *usage.Service, currentUser CurrentUser, upgradeURL string, log *slog.Logger) *Service {
	if engine == nil {
		panic("claims: gating.Engine is required")
	}
	if meter == nil {
		panic("claims: usage.Service is required")
	}
	if currentUser == nil {
		panic("claims: CurrentUser resolver is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{engine: engine, meter: meter, currentUser: currentUser, upgradeURL: upgradeURL, log: log}
}

// Handler mounts the claim routes.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/check", s.handleCheck)
	r.Get("/usage", s.handleUsage)
	r.Get("/pro-feature", s.handleProFeature)
	return r
}

type checkRequest struct {
	Name      string   `json:"name"`
	Countries []string `json:"countries"`
}

type checkResponse struct {
	OK        bool             `json:"ok"`
	Tier      entitlement.Tier `json:"tier"`
	Used      int64            `json:"used"`
	Remaining int64            `json:"remaining"`
}

func (s *Service) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.currentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Countries) == 0 {
		writeError(w, http.StatusBadRequest, "at least one country is required")
		return
	}

	decision, err := s.engine.Check(ctx, user.ID, user.Tier, gating.Request{
		Cardinality: int64(len(req.Countries)),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "gate check failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !decision.Allowed {
		s.writeRejection(w, decision)
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{
		OK:        true,
		Tier:      decision.Tier,
		Used:      decision.Used,
		Remaining: decision.Remaining,
	})
}

type usageResponse struct {
	Date      string           `json:"date"`
	Tier      entitlement.Tier `json:"tier"`
	Used      int64            `json:"used"`
	Remaining int64            `json:"remaining"`
}

// handleUsage reports today's consumption without spending any quota.
func (s *Service) handleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.currentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	used, err := s.meter.Used(ctx, user.ID)
	if err != nil {
		s.log.ErrorContext(ctx, "usage lookup failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	remaining, err := s.engine.Remaining(ctx, user.ID, user.Tier)
	if err != nil {
		s.log.ErrorContext(ctx, "usage lookup failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		Date:      s.meter.Today().String(),
		Tier:      user.Tier,
		Used:      used,
		Remaining: remaining,
	})
}

func (s *Service) handleProFeature(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	decision := s.engine.RequireCapability(user.Tier, entitlement.CapabilityProTools)
	if !decision.Allowed {
		s.writeRejection(w, decision)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"tier":    decision.Tier,
		"feature": entitlement.CapabilityProTools,
	})
}

// rejection is the payment-required payload. Clients branch on code; the
// rest of the fields feed the paywall screen. Limit and remaining are
// pointers because a capability denial has no numbers to report and
// renders them as null.
type rejection struct {
	Detail     string           `json:"detail"`
	Code       gating.Reason    `json:"code"`
	Plan       entitlement.Tier `json:"plan"`
	Limit      *int64           `json:"limit"`
	Remaining  *int64           `json:"remaining"`
	UpgradeURL string           `json:"upgrade_url,omitempty"`
}

func (s *Service) writeRejection(w http.ResponseWriter, d gating.Decision) {
	rej := rejection{
		Detail:     rejectionDetail(d.Reason),
		Code:       d.Reason,
		Plan:       d.Tier,
		UpgradeURL: s.upgradeURL,
	}
	if d.Reason != gating.ReasonUpgradeRequired {
		rej.Limit = &d.Limit
		rej.Remaining = &d.Remaining
	}
	writeJSON(w, http.StatusPaymentRequired, rej)
}

func rejectionDetail(reason gating.Reason) string {
	switch reason {
	case gating.ReasonUpgradeRequired:
		return "your plan does not include this feature"
	case gating.ReasonDailyLimitExceeded:
		return "daily check limit reached"
	case gating.ReasonStructuralLimitExceeded:
		return "too many countries for your plan in a single check"
	default:
		return "request not allowed on your plan"
	}
}
