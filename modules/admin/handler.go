package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clearclaim/backend/pkg/entitlement"
	"github.com/clearclaim/backend/pkg/membership"
	"github.com/clearclaim/backend/pkg/usage"
)

// Authorizer admits or rejects an operator request. The surrounding
// application decides what counts as an operator; an error means 403.
type Authorizer func(r *http.Request) error

// Service exposes the operational endpoints: usage inspection, counter
// recovery, and manual tier provisioning.
type Service struct {
	members   *membership.Service
	meter     *usage.Service
	authorize Authorizer
	log       *slog.Logger
}

// New creates the admin endpoint group.
// Panics if members, meter, or authorize is nil to fail fast during
// initialization.
func New(members *membership.Service, meter *usage.Service, authorize Authorizer, log *slog.Logger) *Service {
	if members == nil {
		panic("admin: membership.Service is required")
	}
	if meter == nil {
		panic("admin: usage.Service is required")
	}
	if authorize == nil {
		panic("admin: Authorizer is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{members: members, meter: meter, authorize: authorize, log: log}
}

// Handler mounts the admin routes behind the authorizer.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.guard)
	r.Get("/usage", s.handleUsageForDate)
	r.Post("/usage/reset", s.handleUsageReset)
	r.Get("/users/{email}", s.handleUser)
	r.Get("/users/{email}/usage", s.handleUserUsage)
	r.Post("/users/{email}/tier", s.handleSetTier)
	return r
}

func (s *Service) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.authorize(r); err != nil {
			writeError(w, http.StatusForbidden, "operator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) handleUsageForDate(w http.ResponseWriter, r *http.Request) {
	day := s.meter.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := usage.ParseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	counters, err := s.meter.ForDate(r.Context(), day, limit)
	if err != nil {
		s.log.ErrorContext(r.Context(), "usage listing failed", "error", err, "date", day)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":     day,
		"counters": counters,
	})
}

func (s *Service) handleUsageReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	day, err := usage.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	if err := s.meter.ResetForDate(r.Context(), day); err != nil {
		s.log.ErrorContext(r.Context(), "usage reset failed", "error", err, "date", day)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.log.InfoContext(r.Context(), "usage counters reset", "date", day)
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset", "date": day})
}

func (s *Service) handleUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.lookupUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Service) handleUserUsage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.lookupUser(w, r)
	if !ok {
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	history, err := s.meter.History(r.Context(), user.ID, days)
	if err != nil {
		s.log.ErrorContext(r.Context(), "usage history failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"email":   user.Email,
		"tier":    user.Tier,
		"history": history,
	})
}

func (s *Service) handleSetTier(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	var req struct {
		Tier   string `json:"tier"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	tier, err := entitlement.ParseTier(req.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown tier")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "manual_admin_update"
	}

	user, err := s.members.Provision(r.Context(), email, tier, reason)
	if err != nil {
		if errors.Is(err, membership.ErrInvalidEmail) {
			writeError(w, http.StatusBadRequest, "invalid email")
			return
		}
		s.log.ErrorContext(r.Context(), "tier provisioning failed", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.log.InfoContext(r.Context(), "tier provisioned", "email", user.Email, "tier", user.Tier, "reason", reason)
	writeJSON(w, http.StatusOK, user)
}

func (s *Service) lookupUser(w http.ResponseWriter, r *http.Request) (*membership.User, bool) {
	email := chi.URLParam(r, "email")
	user, err := s.members.UserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, membership.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return nil, false
		}
		s.log.ErrorContext(r.Context(), "user lookup failed", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return user, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
