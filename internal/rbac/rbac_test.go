package rbac

import "testing"

// TestSuperAdminIsSuperset super_admin 必须覆盖其他所有角色的权限
func TestSuperAdminIsSuperset(t *testing.T) {
	for _, role := range Roles() {
		if role == RoleSuperAdmin {
			continue
		}
		for _, p := range PermissionsFor(role) {
			if !HasPermission(RoleSuperAdmin, p) {
				t.Errorf("super_admin 缺少 %s 的权限 %s", role, p)
			}
		}
	}
}

// TestSuperAdminStrictlyLarger 其他角色必须是严格子集
func TestSuperAdminStrictlyLarger(t *testing.T) {
	superCount := len(PermissionsFor(RoleSuperAdmin))
	for _, role := range Roles() {
		if role == RoleSuperAdmin {
			continue
		}
		if len(PermissionsFor(role)) >= superCount {
			t.Errorf("角色 %s 的权限数不应 >= super_admin", role)
		}
	}
}

// TestUnknownRole 未知角色一律 fail closed
func TestUnknownRole(t *testing.T) {
	if perms := PermissionsFor(Role("ghost")); len(perms) != 0 {
		t.Errorf("未知角色应返回空集，实际 %v", perms)
	}
	if HasPermission(Role("ghost"), PermMembersRead) {
		t.Error("未知角色不应有任何权限")
	}
	if HasAny(Role("ghost"), PermMembersRead, PermAuditRead) {
		t.Error("未知角色 HasAny 应为 false")
	}
	if Valid(Role("ghost")) {
		t.Error("未知角色不应通过 Valid")
	}
}

func TestHasAnyHasAll(t *testing.T) {
	// accountant 有 payments:record 没有 users:manage
	if !HasAny(RoleAccountant, PermUsersManage, PermPaymentsRecord) {
		t.Error("HasAny 应命中 payments:record")
	}
	if HasAll(RoleAccountant, PermUsersManage, PermPaymentsRecord) {
		t.Error("HasAll 不应通过（缺 users:manage）")
	}
	if !HasAll(RoleAccountant, PermPaymentsRead, PermPaymentsRecord) {
		t.Error("HasAll 应通过（两个都有）")
	}
}

// TestSettingsManageOnlySuperAdmin settings:manage 只属于超管
func TestSettingsManageOnlySuperAdmin(t *testing.T) {
	for _, role := range Roles() {
		has := HasPermission(role, PermSettingsManage)
		if role == RoleSuperAdmin && !has {
			t.Error("super_admin 应有 settings:manage")
		}
		if role != RoleSuperAdmin && has {
			t.Errorf("%s 不应有 settings:manage", role)
		}
	}
}

// TestPermissionsForStable 返回有序结果，方便接口输出稳定
func TestPermissionsForStable(t *testing.T) {
	a := PermissionsFor(RoleAdmin)
	b := PermissionsFor(RoleAdmin)
	if len(a) != len(b) {
		t.Fatal("两次结果长度不一致")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("结果顺序不稳定: %v vs %v", a, b)
		}
	}
	for i := 1; i < len(a); i++ {
		if a[i-1] >= a[i] {
			t.Fatalf("结果未排序: %v", a)
		}
	}
}
