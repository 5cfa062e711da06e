// Package authz holds the role → permission matrix checked by the HTTP middleware.
package authz

import (
	"sort"

	"taxengine/internal/model"
)

// Permission is a capability code checked at the authorization boundary
type Permission string

const (
	ClientsRead       Permission = "clients.read"
	ClientsWrite      Permission = "clients.write"
	PeriodsRead       Permission = "periods.read"
	PeriodsWrite      Permission = "periods.write"
	ClaimsRead        Permission = "claims.read"
	ClaimsWrite       Permission = "claims.write"
	SubmissionsRead   Permission = "submissions.read"
	SubmissionsWrite  Permission = "submissions.write"
	AuditRead         Permission = "audit.read"
	UsersManage       Permission = "users.manage"
	TemplatesRead     Permission = "templates.read"
	TemplatesWrite    Permission = "templates.write"
	GatewayManage     Permission = "gateway.manage"
	BillingManage     Permission = "billing.manage"
	RegistryLookup    Permission = "registry.lookup"
	DashboardRead     Permission = "dashboard.read"
	NotificationsRead Permission = "notifications.read"
)

var allPermissions = []Permission{
	ClientsRead, ClientsWrite, PeriodsRead, PeriodsWrite, ClaimsRead, ClaimsWrite,
	SubmissionsRead, SubmissionsWrite, AuditRead, UsersManage, TemplatesRead, TemplatesWrite,
	GatewayManage, BillingManage, RegistryLookup, DashboardRead, NotificationsRead,
}

var matrix = map[model.Role]map[Permission]bool{
	model.RoleAdministrator: setOf(allPermissions...),
	model.RoleClaimProcessor: setOf(
		ClientsRead, ClientsWrite, PeriodsRead, PeriodsWrite, ClaimsRead, ClaimsWrite,
		SubmissionsRead, SubmissionsWrite, AuditRead, TemplatesRead, RegistryLookup,
		DashboardRead, NotificationsRead,
	),
}

func setOf(perms ...Permission) map[Permission]bool {
	m := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		m[p] = true
	}
	return m
}

// Allowed reports whether role holds every listed permission
func Allowed(role model.Role, perms ...Permission) bool {
	granted, ok := matrix[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if !granted[p] {
			return false
		}
	}
	return true
}

// PermissionsFor lists a role's permissions sorted by code
func PermissionsFor(role model.Role) []Permission {
	out := make([]Permission, 0, len(matrix[role]))
	for p := range matrix[role] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoleDescriptor is the read-only view of one row of the matrix
type RoleDescriptor struct {
	Role        model.Role   `json:"role"`
	Label       string       `json:"label"`
	Permissions []Permission `json:"permissions"`
}

// Roles describes the whole matrix
func Roles() []RoleDescriptor {
	return []RoleDescriptor{
		{Role: model.RoleAdministrator, Label: "Administrator", Permissions: PermissionsFor(model.RoleAdministrator)},
		{Role: model.RoleClaimProcessor, Label: "Claim processor", Permissions: PermissionsFor(model.RoleClaimProcessor)},
	}
}
