package model

import "testing"

func TestCardTypePoints(t *testing.T) {
	tests := []struct {
		cardType CardType
		points   int
	}{
		{CardTypeBasic, 1},
		{CardTypeGold, 2},
		{CardTypePlatinum, 3},
	}

	for _, tt := range tests {
		if got := tt.cardType.Points(); got != tt.points {
			t.Fatalf("%s.Points() = %d, want %d", tt.cardType, got, tt.points)
		}
	}
}

func TestCardTypeValid(t *testing.T) {
	for _, valid := range []CardType{CardTypeBasic, CardTypeGold, CardTypePlatinum} {
		if !valid.Valid() {
			t.Fatalf("%s must be valid", valid)
		}
	}
	if CardType("silver").Valid() {
		t.Fatalf("unknown tier must be invalid")
	}
}

func TestEmploymentTypeValid(t *testing.T) {
	for _, valid := range []EmploymentType{EmploymentFullTime, EmploymentPartTime, EmploymentStudent} {
		if !valid.Valid() {
			t.Fatalf("%s must be valid", valid)
		}
	}
	if EmploymentType("contractor").Valid() {
		t.Fatalf("unknown employment type must be invalid")
	}
}

func TestActorHasPermission(t *testing.T) {
	actor := Actor{Permissions: map[string]bool{PermissionManageEmployees: true}}

	if !actor.HasPermission(PermissionManageEmployees) {
		t.Fatalf("granted permission not reported")
	}
	if actor.HasPermission(PermissionManageCards) {
		t.Fatalf("ungranted permission reported")
	}
	if (Actor{}).HasPermission(PermissionManageEmployees) {
		t.Fatalf("zero actor must carry no permissions")
	}
}
