package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleParent  UserRole = "parent"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// AdminUserID is the identifier of the built-in administrator account.
const AdminUserID = "admin"

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleParent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User represents an account stored in the credential store.
type User struct {
	ID           string    `db:"id" json:"id"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	Name         string    `db:"name" json:"name"`
	StudentName  string    `db:"student_name" json:"student_name,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Capability names a permission granted to a role.
type Capability string

const (
	CapComplaintCreate       Capability = "complaint:create"
	CapComplaintReadOwn      Capability = "complaint:read_own"
	CapComplaintTrackStatus  Capability = "complaint:track_status"
	CapComplaintReadAll      Capability = "complaint:read_all"
	CapComplaintAssign       Capability = "complaint:assign"
	CapComplaintUpdateStatus Capability = "complaint:update_status"
	CapAll                   Capability = "all"
	CapUsersManage           Capability = "users:manage"
	CapTeachersManage        Capability = "teachers:manage"
	CapSystemSettings        Capability = "system:settings"
)

// RoleProfile is the display name and capability set attached to a role.
type RoleProfile struct {
	Role         UserRole     `json:"role"`
	DisplayName  string       `json:"display_name"`
	Capabilities []Capability `json:"capabilities"`
}

var roleProfiles = map[UserRole]RoleProfile{
	RoleParent: {
		Role:        RoleParent,
		DisplayName: "Parent",
		Capabilities: []Capability{
			CapComplaintCreate, CapComplaintReadOwn, CapComplaintTrackStatus,
		},
	},
	RoleTeacher: {
		Role:        RoleTeacher,
		DisplayName: "Staff",
		Capabilities: []Capability{
			CapComplaintReadOwn, CapComplaintTrackStatus, CapComplaintReadAll,
			CapComplaintAssign, CapComplaintUpdateStatus,
		},
	},
	RoleAdmin: {
		Role:        RoleAdmin,
		DisplayName: "Administrator",
		Capabilities: []Capability{
			CapAll, CapUsersManage, CapTeachersManage, CapSystemSettings,
		},
	},
}

// ProfileForRole returns a copy of the role's profile. Unknown roles get an empty capability set.
func ProfileForRole(role UserRole) RoleProfile {
	profile, ok := roleProfiles[role]
	if !ok {
		return RoleProfile{Role: role, Capabilities: []Capability{}}
	}
	caps := make([]Capability, len(profile.Capabilities))
	copy(caps, profile.Capabilities)
	profile.Capabilities = caps
	return profile
}
