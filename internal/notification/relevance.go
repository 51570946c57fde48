package notification

import (
	"slices"
	"strings"
	"time"
)

// Titles the registration flow has used for new-user notifications.
var registrationTitles = []string{
	"new user registration",
	"new user registered",
}

const reviewUsersPath = "/review-users"

var elevatedRoles = []string{RoleSuperAdmin, RoleProvinceAdmin, RoleGeneralManager}

// Roles a province_admin administers.
var provinceAdminManagedRoles = []string{RoleProvinceManager, RoleBranchManager, RoleLead, RoleUser}

// IsRelevant reports whether n should be shown to user. It never panics and
// treats missing input as not relevant.
func IsRelevant(n *Notification, user *UserProfile) bool {
	if n == nil || user == nil {
		return false
	}

	if user.UID != "" && slices.Contains(n.TargetUserIDs, user.UID) {
		return true
	}

	targeted := isBroadcast(n) || matchesDirectly(n, user) || inheritsFromManagedRoles(n, user)
	return targeted && inProvince(n, user)
}

// isBroadcast is true when no audience is named at all. A personal-only
// notification (target_user_ids without roles, branch or department) is not
// a broadcast.
func isBroadcast(n *Notification) bool {
	return len(n.TargetRoles) == 0 &&
		n.TargetBranch == "" &&
		n.TargetDepartment == "" &&
		len(n.TargetUserIDs) == 0
}

func matchesDirectly(n *Notification, user *UserProfile) bool {
	if user.Role != "" && targetsAnyRole(n, user.Role) {
		return true
	}
	if n.TargetBranch != "" && n.TargetBranch == user.Branch {
		return true
	}
	return n.TargetDepartment != "" && n.TargetDepartment == user.Department
}

// inheritsFromManagedRoles is the province_admin exception: it sees
// registration notifications sent to the elevated roles and anything sent to
// roles it manages.
func inheritsFromManagedRoles(n *Notification, user *UserProfile) bool {
	if !strings.EqualFold(user.Role, RoleProvinceAdmin) {
		return false
	}
	if targetsAnyRole(n, elevatedRoles...) && isRegistrationNotice(n) {
		return true
	}
	return targetsAnyRole(n, provinceAdminManagedRoles...)
}

func isRegistrationNotice(n *Notification) bool {
	title := strings.ToLower(strings.TrimSpace(n.Title))
	if slices.Contains(registrationTitles, title) {
		return true
	}
	return strings.Contains(n.Link, reviewUsersPath)
}

func inProvince(n *Notification, user *UserProfile) bool {
	if n.ProvinceID == "" {
		return true
	}
	if len(user.AccessibleProvinceIDs) > 0 {
		return slices.Contains(user.AccessibleProvinceIDs, n.ProvinceID)
	}
	return user.Province == n.ProvinceID
}

func targetsAnyRole(n *Notification, roles ...string) bool {
	for _, target := range n.TargetRoles {
		for _, role := range roles {
			if strings.EqualFold(strings.TrimSpace(target), role) {
				return true
			}
		}
	}
	return false
}

// FilterRelevant keeps the documents user may see that are still live at
// the given instant, preserving order.
func FilterRelevant(docs []*Notification, user *UserProfile, at time.Time) []*Notification {
	out := make([]*Notification, 0, len(docs))
	for _, doc := range docs {
		if doc == nil || doc.ExpiredAt(at) {
			continue
		}
		if IsRelevant(doc, user) {
			out = append(out, doc)
		}
	}
	return out
}
