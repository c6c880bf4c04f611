// Package handler contains the HTTP handlers of the reward-card API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mateotillmann/elismeres-w3/internal/middleware"
	"github.com/mateotillmann/elismeres-w3/internal/model"
	"github.com/mateotillmann/elismeres-w3/internal/quota"
	"github.com/mateotillmann/elismeres-w3/internal/repository"
	"github.com/mateotillmann/elismeres-w3/internal/service"
)

// Service defines the business-logic contract used by the HTTP handlers.
type Service interface {
	IssueCard(ctx context.Context, actor model.Actor, employeeID string, tier model.CardType, now time.Time) (*model.RewardCard, error)
	RedeemCard(ctx context.Context, cardID string, now time.Time) (*model.RewardCard, error)
	GetCard(ctx context.Context, cardID string) (*model.RewardCard, error)
	ListCards(ctx context.Context) ([]model.RewardCard, error)
	CardsForEmployee(ctx context.Context, employeeID string) ([]model.RewardCard, error)
	DeleteCard(ctx context.Context, actor model.Actor, cardID string) error
	QuotaSnapshot(ctx context.Context, now time.Time) (quota.Snapshot, error)
	AddEmployee(ctx context.Context, actor model.Actor, fields service.EmployeeFields, now time.Time) (*model.Employee, error)
	UpdateEmployee(ctx context.Context, actor model.Actor, employeeID string, fields service.EmployeeFields) (*model.Employee, error)
	RemoveEmployee(ctx context.Context, actor model.Actor, employeeID string) error
	GetEmployee(ctx context.Context, employeeID string) (*model.Employee, error)
	ListEmployees(ctx context.Context) ([]model.Employee, error)
}

// Handler implements the HTTP handlers of the reward-card API.
type Handler struct {
	service  Service
	logger   *zap.Logger
	sessions *middleware.SessionManager
	now      func() time.Time
}

// NewHandler creates a new HTTP handler instance.
func NewHandler(s Service, logger *zap.Logger, sessions *middleware.SessionManager) *Handler {
	return &Handler{
		service:  s,
		logger:   logger,
		sessions: sessions,
		now:      time.Now,
	}
}

type errorResponse struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Field       string `json:"field,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Requirement string `json:"requirement,omitempty"`
}

// writeError maps the service error taxonomy onto HTTP statuses and a
// machine-readable refusal payload. Unexpected store failures surface as 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		status = http.StatusInternalServerError
		resp   = errorResponse{Code: "store_error", Message: "internal error"}
	)

	var validationErr *service.ValidationError
	var forbiddenErr *service.ForbiddenError
	var quotaErr *repository.QuotaExceededError

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		resp = errorResponse{
			Code:    "validation_error",
			Message: validationErr.Error(),
			Field:   validationErr.Field,
		}
	case errors.As(err, &quotaErr):
		status = http.StatusConflict
		resp = errorResponse{
			Code:    "quota_exceeded",
			Message: quotaErr.Error(),
			Bucket:  string(quotaErr.Bucket),
			Limit:   quotaErr.Limit,
		}
	case errors.As(err, &forbiddenErr):
		status = http.StatusForbidden
		resp = errorResponse{
			Code:        "forbidden",
			Message:     forbiddenErr.Error(),
			Requirement: forbiddenErr.Requirement,
		}
	case errors.Is(err, repository.ErrAlreadyRedeemed):
		status = http.StatusConflict
		resp = errorResponse{Code: "already_redeemed", Message: err.Error()}
	case errors.Is(err, repository.ErrCardNotFound),
		errors.Is(err, repository.ErrEmployeeNotFound):
		status = http.StatusNotFound
		resp = errorResponse{Code: "not_found", Message: err.Error()}
	default:
		h.logger.Error("internal error", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login verifies the admin password and establishes an admin session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !h.sessions.Login(req.Password) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.sessions.SetAdminCookie(w)
	w.WriteHeader(http.StatusOK)
}

// Logout drops the admin session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearAdminCookie(w)
	w.WriteHeader(http.StatusOK)
}

type quotaResponse struct {
	BasicIssued      int `json:"basic_issued"`
	BasicLimit       int `json:"basic_limit"`
	BasicRemaining   int `json:"basic_remaining"`
	PremiumIssued    int `json:"premium_issued"`
	PremiumLimit     int `json:"premium_limit"`
	PremiumRemaining int `json:"premium_remaining"`
}

// GetQuota returns today's issuance state per bucket.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.QuotaSnapshot(r.Context(), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, quotaResponse{
		BasicIssued:      snapshot.BasicIssued,
		BasicLimit:       quota.BasicLimit,
		BasicRemaining:   snapshot.BasicRemaining,
		PremiumIssued:    snapshot.PremiumIssued,
		PremiumLimit:     quota.PremiumLimit,
		PremiumRemaining: snapshot.PremiumRemaining,
	})
}

type cardResponse struct {
	ID         string  `json:"id"`
	EmployeeID string  `json:"employee_id"`
	CardType   string  `json:"card_type"`
	Points     int     `json:"points"`
	IssuedAt   string  `json:"issued_at"`
	IsRedeemed bool    `json:"is_redeemed"`
	RedeemedAt *string `json:"redeemed_at,omitempty"`
}

func toCardResponse(c *model.RewardCard) cardResponse {
	resp := cardResponse{
		ID:         c.ID,
		EmployeeID: c.EmployeeID,
		CardType:   string(c.CardType),
		Points:     c.CardType.Points(),
		IssuedAt:   c.IssuedAt.Format(time.RFC3339),
		IsRedeemed: c.IsRedeemed,
	}
	if c.RedeemedAt != nil {
		at := c.RedeemedAt.Format(time.RFC3339)
		resp.RedeemedAt = &at
	}
	return resp
}

type issueCardRequest struct {
	EmployeeID string `json:"employee_id"`
	CardType   string `json:"card_type"`
}

// IssueCard issues a new card to an employee within the daily quota.
func (h *Handler) IssueCard(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	var req issueCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	card, err := h.service.IssueCard(r.Context(), actor, req.EmployeeID, model.CardType(req.CardType), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toCardResponse(card))
}

// ListCards returns all cards, newest first.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.service.ListCards(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]cardResponse, 0, len(cards))
	for i := range cards {
		resp = append(resp, toCardResponse(&cards[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetCard returns a single card by id.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.service.GetCard(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toCardResponse(card))
}

// RedeemCard marks a card as redeemed.
func (h *Handler) RedeemCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.service.RedeemCard(r.Context(), pathID(r), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toCardResponse(card))
}

// DeleteCard permanently removes a card, subject to the actor's role.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	if err := h.service.DeleteCard(r.Context(), actor, pathID(r)); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type employeeRequest struct {
	Name           string `json:"name"`
	Position       string `json:"position"`
	EmploymentType string `json:"employment_type"`
}

func (req employeeRequest) fields() service.EmployeeFields {
	return service.EmployeeFields{
		Name:           req.Name,
		Position:       req.Position,
		EmploymentType: model.EmploymentType(req.EmploymentType),
	}
}

type employeeResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Position       string `json:"position"`
	EmploymentType string `json:"employment_type"`
}

func toEmployeeResponse(e *model.Employee) employeeResponse {
	return employeeResponse{
		ID:             e.ID,
		Name:           e.Name,
		Position:       e.Position,
		EmploymentType: string(e.EmploymentType),
	}
}

// AddEmployee creates a new employee record.
func (h *Handler) AddEmployee(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	employee, err := h.service.AddEmployee(r.Context(), actor, req.fields(), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toEmployeeResponse(employee))
}

// UpdateEmployee overwrites an existing employee record.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	employee, err := h.service.UpdateEmployee(r.Context(), actor, pathID(r), req.fields())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toEmployeeResponse(employee))
}

// ListEmployees returns the directory in locale-aware name order.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]employeeResponse, 0, len(employees))
	for i := range employees {
		resp = append(resp, toEmployeeResponse(&employees[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetEmployee returns a single employee by id.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	employee, err := h.service.GetEmployee(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toEmployeeResponse(employee))
}

// EmployeeCards returns the cards issued to one employee.
func (h *Handler) EmployeeCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.service.CardsForEmployee(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]cardResponse, 0, len(cards))
	for i := range cards {
		resp = append(resp, toCardResponse(&cards[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// RemoveEmployee permanently deletes an employee record.
func (h *Handler) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	if err := h.service.RemoveEmployee(r.Context(), actor, pathID(r)); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
