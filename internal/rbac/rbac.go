// Package rbac holds the static role → permission mapping used for every
// protected request. It is pure and performs no I/O: accounts store a role
// name, permission sets live here.
package rbac

import "sort"

// Role is a named bundle of permissions assigned to an Account.
type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RoleAdmin         Role = "admin"
	RoleMemberManager Role = "member_manager"
	RoleCaseManager   Role = "case_manager"
	RoleAccountant    Role = "accountant"
	RoleReviewer      Role = "reviewer"
	RoleStaff         Role = "staff"
)

// Permission is an additive capability tag of the form "resource:action".
// There is no hierarchy or inheritance: a role has exactly the permissions
// enumerated for it.
type Permission string

const (
	PermMembersRead   Permission = "members:read"
	PermMembersCreate Permission = "members:create"
	PermMembersUpdate Permission = "members:update"
	PermMembersDelete Permission = "members:delete"

	PermOrgsRead   Permission = "organizations:read"
	PermOrgsManage Permission = "organizations:manage"

	PermCasesRead   Permission = "cases:read"
	PermCasesCreate Permission = "cases:create"
	PermCasesUpdate Permission = "cases:update"
	PermCasesAssign Permission = "cases:assign"
	PermCasesClose  Permission = "cases:close"

	PermPaymentsRead   Permission = "payments:read"
	PermPaymentsRecord Permission = "payments:record"
	PermPaymentsRefund Permission = "payments:refund"

	PermRenewalsRead    Permission = "renewals:read"
	PermRenewalsProcess Permission = "renewals:process"

	PermUsersRead   Permission = "users:read"
	PermUsersManage Permission = "users:manage"

	PermAuditRead      Permission = "audit:read"
	PermReportsRead    Permission = "reports:read"
	PermSettingsManage Permission = "settings:manage"
)

type permSet map[Permission]struct{}

func set(perms ...Permission) permSet {
	s := make(permSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

var rolePermissions = map[Role]permSet{
	RoleAdmin: set(
		PermMembersRead, PermMembersCreate, PermMembersUpdate, PermMembersDelete,
		PermOrgsRead, PermOrgsManage,
		PermCasesRead, PermCasesCreate, PermCasesUpdate, PermCasesAssign, PermCasesClose,
		PermPaymentsRead, PermPaymentsRecord, PermPaymentsRefund,
		PermRenewalsRead, PermRenewalsProcess,
		PermUsersRead, PermUsersManage,
		PermAuditRead, PermReportsRead,
	),
	RoleMemberManager: set(
		PermMembersRead, PermMembersCreate, PermMembersUpdate,
		PermOrgsRead,
		PermRenewalsRead,
	),
	RoleCaseManager: set(
		PermMembersRead,
		PermCasesRead, PermCasesCreate, PermCasesUpdate, PermCasesAssign, PermCasesClose,
	),
	RoleAccountant: set(
		PermMembersRead,
		PermPaymentsRead, PermPaymentsRecord, PermPaymentsRefund,
		PermRenewalsRead, PermRenewalsProcess,
		PermReportsRead,
	),
	RoleReviewer: set(
		PermMembersRead,
		PermCasesRead,
		PermReportsRead,
	),
	RoleStaff: set(
		PermMembersRead,
		PermCasesRead,
	),
}

// super_admin 自动取所有角色权限的并集再加上仅限超管的权限，
// 避免新增权限时漏掉手工枚举
func init() {
	union := set(PermSettingsManage)
	for _, perms := range rolePermissions {
		for p := range perms {
			union[p] = struct{}{}
		}
	}
	rolePermissions[RoleSuperAdmin] = union
}

// Valid reports whether the role name exists in the mapping.
func Valid(role Role) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission reports whether the role grants the permission.
// Unknown roles grant nothing (fail closed).
func HasPermission(role Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[perm]
	return ok
}

// HasAny reports whether the role grants at least one of the permissions.
func HasAny(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the role grants every one of the permissions.
func HasAll(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// PermissionsFor returns the role's permissions, sorted for stable output.
// Unknown roles yield an empty slice, never an error.
func PermissionsFor(role Role) []Permission {
	perms, ok := rolePermissions[role]
	if !ok {
		return []Permission{}
	}
	out := make([]Permission, 0, len(perms))
	for p := range perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Roles returns every defined role name, sorted.
func Roles() []Role {
	out := make([]Role, 0, len(rolePermissions))
	for r := range rolePermissions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
