package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRelevant(t *testing.T) {
	cases := []struct {
		name  string
		n     *Notification
		user  *UserProfile
		allow bool
	}{
		{
			name:  "broadcast reaches everyone",
			n:     &Notification{Title: "Stock count tomorrow"},
			user:  &UserProfile{UID: "u1", Role: RoleUser},
			allow: true,
		},
		{
			name:  "broadcast reaches users without a role",
			n:     &Notification{},
			user:  &UserProfile{UID: "u1"},
			allow: true,
		},
		{
			name:  "personal override beats every mismatch",
			n:     &Notification{TargetRoles: []string{RoleSuperAdmin}, TargetBranch: "HQ", ProvinceID: "P9", TargetUserIDs: []string{"u1"}},
			user:  &UserProfile{UID: "u1", Role: RoleUser, Branch: "B2", Province: "P1"},
			allow: true,
		},
		{
			name:  "personal notification hidden from others",
			n:     &Notification{TargetUserIDs: []string{"u2"}},
			user:  &UserProfile{UID: "u1", Role: RoleUser},
			allow: false,
		},
		{
			name:  "role match is case-insensitive",
			n:     &Notification{TargetRoles: []string{"BRANCH_MANAGER"}},
			user:  &UserProfile{UID: "u1", Role: "branch_manager"},
			allow: true,
		},
		{
			name:  "branch match",
			n:     &Notification{TargetBranch: "Vientiane-01"},
			user:  &UserProfile{UID: "u1", Role: RoleUser, Branch: "Vientiane-01"},
			allow: true,
		},
		{
			name:  "department match",
			n:     &Notification{TargetDepartment: "sales"},
			user:  &UserProfile{UID: "u1", Role: RoleUser, Department: "sales"},
			allow: true,
		},
		{
			name:  "empty user branch never matches",
			n:     &Notification{TargetBranch: "Vientiane-01"},
			user:  &UserProfile{UID: "u1", Role: RoleUser},
			allow: false,
		},
		{
			name:  "super admin notification hidden from user",
			n:     &Notification{TargetRoles: []string{RoleSuperAdmin}},
			user:  &UserProfile{UID: "u1", Role: RoleUser},
			allow: false,
		},
		{
			name:  "super admin notification shown to super admin",
			n:     &Notification{TargetRoles: []string{RoleSuperAdmin}},
			user:  &UserProfile{UID: "u1", Role: RoleSuperAdmin},
			allow: true,
		},
		{
			name:  "province admin inherits managed roles",
			n:     &Notification{TargetRoles: []string{RoleProvinceManager}, TargetBranch: "HQ"},
			user:  &UserProfile{UID: "u1", Role: RoleProvinceAdmin, Branch: "B1"},
			allow: true,
		},
		{
			name:  "province admin inherits lead",
			n:     &Notification{TargetRoles: []string{"Lead"}},
			user:  &UserProfile{UID: "u1", Role: RoleProvinceAdmin},
			allow: true,
		},
		{
			name:  "province admin sees registration notice by title",
			n:     &Notification{Title: "New User Registration", TargetRoles: []string{RoleSuperAdmin}},
			user:  &UserProfile{UID: "u1", Role: RoleProvinceAdmin},
			allow: true,
		},
		{
			name:  "province admin sees registration notice by link",
			n:     &Notification{Title: "Somchai signed up", Link: "/review-users?uid=42", TargetRoles: []string{RoleGeneralManager}},
			user:  &UserProfile{UID: "u1", Role: RoleProvinceAdmin},
			allow: true,
		},
		{
			name:  "province admin does not inherit other elevated notices",
			n:     &Notification{Title: "Quarterly report ready", TargetRoles: []string{RoleSuperAdmin}},
			user:  &UserProfile{UID: "u1", Role: RoleProvinceAdmin},
			allow: false,
		},
		{
			name:  "inheritance is only for province admin",
			n:     &Notification{TargetRoles: []string{RoleUser}},
			user:  &UserProfile{UID: "u1", Role: RoleGeneralManager},
			allow: false,
		},
		{
			name:  "province via accessible list",
			n:     &Notification{ProvinceID: "P2"},
			user:  &UserProfile{UID: "u1", Role: RoleUser, Province: "P1", AccessibleProvinceIDs: []string{"P2", "P3"}},
			allow: true,
		},
		{
			name:  "accessible list overrides own province",
			n:     &Notification{ProvinceID: "P1"},
			user:  &UserProfile{UID: "u1", Role: RoleUser, Province: "P1", AccessibleProvinceIDs: []string{"P2", "P3"}},
			allow: false,
		},
		{
			name:  "province outside accessible list",
			n:     &Notification{ProvinceID: "P1", TargetRoles: []string{RoleSuperAdmin}},
			user:  &UserProfile{UID: "u1", Role: RoleUser, AccessibleProvinceIDs: []string{"P2", "P3"}},
			allow: false,
		},
		{
			name:  "own province",
			n:     &Notification{ProvinceID: "P1", TargetRoles: []string{RoleUser}},
			user:  &UserProfile{UID: "u1", Role: RoleUser, Province: "P1"},
			allow: true,
		},
		{
			name:  "direct match still gated by province",
			n:     &Notification{ProvinceID: "P1", TargetRoles: []string{RoleUser}},
			user:  &UserProfile{UID: "u1", Role: RoleUser, Province: "P2"},
			allow: false,
		},
		{
			name:  "inheritance still gated by province",
			n:     &Notification{ProvinceID: "P1", TargetRoles: []string{RoleLead}},
			user:  &UserProfile{UID: "u1", Role: RoleProvinceAdmin, AccessibleProvinceIDs: []string{"P2"}},
			allow: false,
		},
		{
			name:  "nil notification",
			n:     nil,
			user:  &UserProfile{UID: "u1"},
			allow: false,
		},
		{
			name:  "nil user",
			n:     &Notification{},
			user:  nil,
			allow: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allow, IsRelevant(tc.n, tc.user))
		})
	}
}

func TestBroadcastVisibleToEveryRole(t *testing.T) {
	n := &Notification{Title: "Maintenance window", Type: TypeWarning}
	roles := []string{RoleSuperAdmin, RoleProvinceAdmin, RoleGeneralManager, RoleProvinceManager, RoleBranchManager, RoleLead, RoleUser, "", "auditor"}
	for _, role := range roles {
		user := &UserProfile{UID: "u-" + role, Role: role, Province: "P7", AccessibleProvinceIDs: []string{"P8"}}
		assert.True(t, IsRelevant(n, user), "role %q", role)
	}
}

func TestIsRelevantDoesNotMutateInputs(t *testing.T) {
	n := &Notification{TargetRoles: []string{"LEAD"}, ProvinceID: "P1", TargetUserIDs: []string{"x"}}
	user := &UserProfile{UID: "u1", Role: RoleProvinceAdmin, AccessibleProvinceIDs: []string{"P1"}}

	before, beforeUser := *clone(n), *user
	IsRelevant(n, user)

	assert.Equal(t, before, *n)
	assert.Equal(t, beforeUser, *user)
}
