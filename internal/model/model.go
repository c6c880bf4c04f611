// Package model contains the domain entities of the reward-card service.
package model

import "time"

// CardType is the reward-value class of a card.
type CardType string

const (
	CardTypeBasic    CardType = "basic"
	CardTypeGold     CardType = "gold"
	CardTypePlatinum CardType = "platinum"
)

// Valid reports whether the card type is one of the known tiers.
func (t CardType) Valid() bool {
	switch t {
	case CardTypeBasic, CardTypeGold, CardTypePlatinum:
		return true
	}
	return false
}

// Points returns the point value awarded by a card of this type.
func (t CardType) Points() int {
	switch t {
	case CardTypeGold:
		return 2
	case CardTypePlatinum:
		return 3
	default:
		return 1
	}
}

// RewardCard is a performance-reward card issued to an employee.
// RedeemedAt is set exactly once, when IsRedeemed becomes true.
type RewardCard struct {
	ID         string
	EmployeeID string
	CardType   CardType
	IssuedAt   time.Time
	IsRedeemed bool
	RedeemedAt *time.Time
}

// EmploymentType describes the contract form of an employee.
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full-time"
	EmploymentPartTime EmploymentType = "part-time"
	EmploymentStudent  EmploymentType = "student"
)

// Valid reports whether the employment type is one of the known forms.
func (e EmploymentType) Valid() bool {
	switch e {
	case EmploymentFullTime, EmploymentPartTime, EmploymentStudent:
		return true
	}
	return false
}

// Employee is a staff member who can receive reward cards.
type Employee struct {
	ID             string
	Name           string
	Position       string
	EmploymentType EmploymentType
	CreatedAt      time.Time
}

// PermissionManageEmployees allows directory mutations without the admin role.
const PermissionManageEmployees = "manage_employees"

// PermissionManageCards allows deleting unredeemed cards without the admin role.
const PermissionManageCards = "manage_cards"

// Actor identifies the caller of an operation together with its capabilities.
// Every mutating operation receives the actor explicitly; the core keeps no
// ambient session state.
type Actor struct {
	Admin       bool
	Permissions map[string]bool
}

// HasPermission reports whether the actor carries the named permission.
func (a Actor) HasPermission(name string) bool {
	return a.Permissions[name]
}

// AdminActor returns an actor with the admin role.
func AdminActor() Actor {
	return Actor{Admin: true}
}
