package models

import (
	"testing"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"admin role", RoleAdmin, true},
		{"manager role", RoleManager, true},
		{"operator role", RoleOperator, true},
		{"viewer role", RoleViewer, true},
		{"invalid role", "invalid", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%s) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestUser_HasPermission(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	manager := &User{Role: RoleManager}
	operator := &User{Role: RoleOperator}
	viewer := &User{Role: RoleViewer}
	nobody := &User{Role: "guest"}

	tests := []struct {
		name     string
		user     *User
		action   string
		expected bool
	}{
		{"admin can manage users", admin, ActionManageUsers, true},
		{"admin can manage fuel", admin, ActionManageFuel, true},

		{"manager cannot manage users", manager, ActionManageUsers, false},
		{"manager can manage fleet", manager, ActionManageFleet, true},
		{"manager can run checks", manager, ActionRunChecks, true},

		{"operator can register fuel operations", operator, ActionManageFuel, true},
		{"operator can run checks", operator, ActionRunChecks, true},
		{"operator can view fleet", operator, ActionViewFleet, true},
		{"operator cannot manage fleet", operator, ActionManageFleet, false},
		{"operator cannot manage users", operator, ActionManageUsers, false},

		{"viewer can view fleet", viewer, ActionViewFleet, true},
		{"viewer can view fuel", viewer, ActionViewFuel, true},
		{"viewer cannot manage fuel", viewer, ActionManageFuel, false},
		{"viewer cannot run checks", viewer, ActionRunChecks, false},

		{"unknown role has nothing", nobody, ActionViewFleet, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.user.HasPermission(tt.action)
			if result != tt.expected {
				t.Errorf("User with role %s HasPermission(%s) = %v, want %v",
					tt.user.Role, tt.action, result, tt.expected)
			}
		})
	}
}
