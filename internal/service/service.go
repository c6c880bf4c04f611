// Package service implements the card lifecycle and employee directory logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mateotillmann/elismeres-w3/internal/metrics"
	"github.com/mateotillmann/elismeres-w3/internal/model"
	"github.com/mateotillmann/elismeres-w3/internal/quota"
	"github.com/mateotillmann/elismeres-w3/internal/repository"
	"github.com/mateotillmann/elismeres-w3/internal/validation"
)

// Repository describes the persistence contract used by the service.
type Repository interface {
	Close() error
	CreateCard(ctx context.Context, card model.RewardCard) error
	GetCard(ctx context.Context, id string) (*model.RewardCard, error)
	ListCards(ctx context.Context) ([]model.RewardCard, error)
	CardsByEmployee(ctx context.Context, employeeID string) ([]model.RewardCard, error)
	RedeemCard(ctx context.Context, id string, now time.Time) (*model.RewardCard, error)
	DeleteCard(ctx context.Context, id string) error
	CreateEmployee(ctx context.Context, e model.Employee) error
	GetEmployee(ctx context.Context, id string) (*model.Employee, error)
	ListEmployees(ctx context.Context) ([]model.Employee, error)
	UpdateEmployee(ctx context.Context, e model.Employee) error
	DeleteEmployee(ctx context.Context, id string) error
}

// ForbiddenError is an authorization refusal. Requirement names the missing
// role or permission so the caller can show what was needed.
type ForbiddenError struct {
	Requirement string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: requires %s", e.Requirement)
}

// ValidationError is an input refusal tied to a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EmployeeFields carries the mutable attributes of an employee record.
type EmployeeFields struct {
	Name           string
	Position       string
	EmploymentType model.EmploymentType
}

// Service contains the business logic of the reward-card system.
type Service struct {
	repo Repository
}

// NewService creates a service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Close releases the service's resources.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// IssueCard creates a new unredeemed card for the employee, provided the
// tier's bucket still has daily allowance. The quota check and the insert are
// one atomic unit inside the repository.
func (s *Service) IssueCard(ctx context.Context, actor model.Actor, employeeID string, tier model.CardType, now time.Time) (*model.RewardCard, error) {
	if !tier.Valid() {
		return nil, &ValidationError{Field: "cardType", Reason: "unknown card type"}
	}
	if employeeID == "" {
		return nil, &ValidationError{Field: "employeeId", Reason: "must not be empty"}
	}

	if _, err := s.repo.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	card := model.RewardCard{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		CardType:   tier,
		IssuedAt:   now,
	}

	if err := s.repo.CreateCard(ctx, card); err != nil {
		if qe, ok := asQuotaExceeded(err); ok {
			metrics.QuotaRefusals.WithLabelValues(string(qe.Bucket)).Inc()
		}
		return nil, err
	}

	metrics.CardsIssued.WithLabelValues(string(tier)).Inc()
	return &card, nil
}

func asQuotaExceeded(err error) (*repository.QuotaExceededError, bool) {
	var qe *repository.QuotaExceededError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// RedeemCard marks the card redeemed. The transition is one-way: a second
// call returns ErrAlreadyRedeemed and leaves RedeemedAt untouched.
func (s *Service) RedeemCard(ctx context.Context, cardID string, now time.Time) (*model.RewardCard, error) {
	card, err := s.repo.RedeemCard(ctx, cardID, now)
	if err != nil {
		return nil, err
	}

	metrics.CardsRedeemed.Inc()
	return card, nil
}

// GetCard returns a single card.
func (s *Service) GetCard(ctx context.Context, cardID string) (*model.RewardCard, error) {
	return s.repo.GetCard(ctx, cardID)
}

// ListCards returns all cards, newest first.
func (s *Service) ListCards(ctx context.Context) ([]model.RewardCard, error) {
	return s.repo.ListCards(ctx)
}

// CardsForEmployee returns the cards issued to one employee, including cards
// whose employee record has since been removed from the directory.
func (s *Service) CardsForEmployee(ctx context.Context, employeeID string) ([]model.RewardCard, error) {
	return s.repo.CardsByEmployee(ctx, employeeID)
}

// DeleteCard permanently removes a card. A redeemed card may only be deleted
// by an admin; an unredeemed one also by an actor holding the card
// management permission.
func (s *Service) DeleteCard(ctx context.Context, actor model.Actor, cardID string) error {
	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return err
	}

	if card.IsRedeemed {
		if !actor.Admin {
			return &ForbiddenError{Requirement: "admin role"}
		}
	} else if !actor.Admin && !actor.HasPermission(model.PermissionManageCards) {
		return &ForbiddenError{Requirement: "admin role or " + model.PermissionManageCards}
	}

	return s.repo.DeleteCard(ctx, cardID)
}

// QuotaSnapshot derives today's issuance state at the given time. The result
// is never cached: redemption can free a slot between two calls.
func (s *Service) QuotaSnapshot(ctx context.Context, now time.Time) (quota.Snapshot, error) {
	cards, err := s.repo.ListCards(ctx)
	if err != nil {
		return quota.Snapshot{}, err
	}
	return quota.Evaluate(cards, now), nil
}

// AddEmployee creates a directory record. Requires the admin role or the
// employee management permission.
func (s *Service) AddEmployee(ctx context.Context, actor model.Actor, fields EmployeeFields, now time.Time) (*model.Employee, error) {
	if err := requireManageEmployees(actor); err != nil {
		return nil, err
	}
	if err := validateEmployeeFields(fields); err != nil {
		return nil, err
	}

	e := model.Employee{
		ID:             uuid.NewString(),
		Name:           validation.Normalize(fields.Name),
		Position:       validation.Normalize(fields.Position),
		EmploymentType: fields.EmploymentType,
		CreatedAt:      now,
	}

	if err := s.repo.CreateEmployee(ctx, e); err != nil {
		return nil, err
	}

	return &e, nil
}

// UpdateEmployee overwrites the mutable fields of an existing record.
func (s *Service) UpdateEmployee(ctx context.Context, actor model.Actor, employeeID string, fields EmployeeFields) (*model.Employee, error) {
	if err := requireManageEmployees(actor); err != nil {
		return nil, err
	}
	if err := validateEmployeeFields(fields); err != nil {
		return nil, err
	}

	current, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	current.Name = validation.Normalize(fields.Name)
	current.Position = validation.Normalize(fields.Position)
	current.EmploymentType = fields.EmploymentType

	if err := s.repo.UpdateEmployee(ctx, *current); err != nil {
		return nil, err
	}

	return current, nil
}

// RemoveEmployee permanently deletes the record. Cards issued to the employee
// are kept; they reference the removed id as historical record.
func (s *Service) RemoveEmployee(ctx context.Context, actor model.Actor, employeeID string) error {
	if err := requireManageEmployees(actor); err != nil {
		return err
	}
	return s.repo.DeleteEmployee(ctx, employeeID)
}

// GetEmployee returns a single employee.
func (s *Service) GetEmployee(ctx context.Context, employeeID string) (*model.Employee, error) {
	return s.repo.GetEmployee(ctx, employeeID)
}

// ListEmployees returns the directory ordered by name under Hungarian,
// case-insensitive collation. The ordering is part of the API contract.
func (s *Service) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	// collate.Collator is not safe for concurrent use, so build one per call.
	c := collate.New(language.Hungarian, collate.IgnoreCase)
	sort.SliceStable(employees, func(i, j int) bool {
		return c.CompareString(employees[i].Name, employees[j].Name) < 0
	})

	return employees, nil
}

func requireManageEmployees(actor model.Actor) error {
	if actor.Admin || actor.HasPermission(model.PermissionManageEmployees) {
		return nil
	}
	return &ForbiddenError{Requirement: "admin role or " + model.PermissionManageEmployees}
}

func validateEmployeeFields(fields EmployeeFields) error {
	if !validation.IsValidName(fields.Name) {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !validation.IsValidName(fields.Position) {
		return &ValidationError{Field: "position", Reason: "must not be empty"}
	}
	if !fields.EmploymentType.Valid() {
		return &ValidationError{Field: "employmentType", Reason: "unknown employment type"}
	}
	return nil
}
