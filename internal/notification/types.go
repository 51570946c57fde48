package notification

import (
	"errors"
	"slices"
	"time"
)

type NotificationType string

const (
	TypeSuccess NotificationType = "success"
	TypeInfo    NotificationType = "info"
	TypeWarning NotificationType = "warning"
	TypeError   NotificationType = "error"
)

func (t NotificationType) Valid() bool {
	switch t {
	case TypeSuccess, TypeInfo, TypeWarning, TypeError:
		return true
	}
	return false
}

// Roles known to the back office.
const (
	RoleSuperAdmin      = "super_admin"
	RoleProvinceAdmin   = "province_admin"
	RoleGeneralManager  = "general_manager"
	RoleProvinceManager = "province_manager"
	RoleBranchManager   = "branch_manager"
	RoleLead            = "lead"
	RoleUser            = "user"
)

var ErrNotFound = errors.New("notification not found")

// Notification is the document stored in the notifications collection.
type Notification struct {
	ID               string           `firestore:"-" json:"id"`
	Title            string           `firestore:"title" json:"title"`
	Description      string           `firestore:"description" json:"description"`
	Type             NotificationType `firestore:"type" json:"type"`
	CreatedAt        time.Time        `firestore:"createdAt" json:"created_at"`
	UpdatedAt        time.Time        `firestore:"updatedAt" json:"updated_at"`
	ExpiresAt        time.Time        `firestore:"expiresAt" json:"expires_at"`
	TargetRoles      []string         `firestore:"targetRoles,omitempty" json:"target_roles,omitempty"`
	TargetBranch     string           `firestore:"targetBranch,omitempty" json:"target_branch,omitempty"`
	TargetDepartment string           `firestore:"targetDepartment,omitempty" json:"target_department,omitempty"`
	TargetUserIDs    []string         `firestore:"targetUserIds,omitempty" json:"target_user_ids,omitempty"`
	ProvinceID       string           `firestore:"provinceId,omitempty" json:"province_id,omitempty"`
	Link             string           `firestore:"link,omitempty" json:"link,omitempty"`
	ImageURL         string           `firestore:"imageUrl,omitempty" json:"image_url,omitempty"`
	ReadBy           []string         `firestore:"readBy" json:"read_by"`
}

func (n *Notification) IsReadBy(uid string) bool {
	return uid != "" && slices.Contains(n.ReadBy, uid)
}

func (n *Notification) ExpiredAt(at time.Time) bool {
	return !n.ExpiresAt.After(at)
}

// UserProfile is the slice of the auth subsystem's user record the
// notification logic reads.
type UserProfile struct {
	UID                   string   `json:"uid"`
	Role                  string   `json:"role"`
	Branch                string   `json:"branch,omitempty"`
	Department            string   `json:"department,omitempty"`
	Province              string   `json:"province,omitempty"`
	AccessibleProvinceIDs []string `json:"accessible_province_ids,omitempty"`
}

// View is what leaves the service: a notification as seen by one user.
type View struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Type             NotificationType `json:"type"`
	CreatedAt        time.Time        `json:"created_at"`
	ExpiresAt        time.Time        `json:"expires_at"`
	IsRead           bool             `json:"is_read"`
	Link             string           `json:"link,omitempty"`
	ImageURL         string           `json:"image_url,omitempty"`
	ProvinceID       string           `json:"province_id,omitempty"`
	TargetRoles      []string         `json:"target_roles,omitempty"`
	TargetBranch     string           `json:"target_branch,omitempty"`
	TargetDepartment string           `json:"target_department,omitempty"`
	TargetUserIDs    []string         `json:"target_user_ids,omitempty"`
}

func NewView(n *Notification, uid string) View {
	return View{
		ID:               n.ID,
		Title:            n.Title,
		Description:      n.Description,
		Type:             n.Type,
		CreatedAt:        n.CreatedAt,
		ExpiresAt:        n.ExpiresAt,
		IsRead:           n.IsReadBy(uid),
		Link:             n.Link,
		ImageURL:         n.ImageURL,
		ProvinceID:       n.ProvinceID,
		TargetRoles:      n.TargetRoles,
		TargetBranch:     n.TargetBranch,
		TargetDepartment: n.TargetDepartment,
		TargetUserIDs:    n.TargetUserIDs,
	}
}

type NotificationRequest struct {
	Title            string           `json:"title" validate:"required,max=200"`
	Description      string           `json:"description" validate:"max=2000"`
	Type             NotificationType `json:"type" validate:"required,notification_type"`
	TargetRoles      []string         `json:"target_roles,omitempty"`
	TargetBranch     string           `json:"target_branch,omitempty"`
	TargetDepartment string           `json:"target_department,omitempty"`
	TargetUserIDs    []string         `json:"target_user_ids,omitempty"`
	ProvinceID       string           `json:"province_id,omitempty"`
	Link             string           `json:"link,omitempty" validate:"omitempty,max=500"`
	ImageURL         string           `json:"image_url,omitempty" validate:"omitempty,url"`
	TTLSeconds       int64            `json:"ttl_seconds,omitempty" validate:"gte=0"`
}

type Page struct {
	Items   []View `json:"items"`
	HasMore bool   `json:"has_more"`
	Cursor  string `json:"cursor,omitempty"`
}

type NotificationStats struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}
