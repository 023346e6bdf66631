package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the faculty member's portal profile, one per user.
type Profile struct {
	UserID          uuid.UUID `json:"user_id"`
	Name            string    `json:"name"`
	Department      string    `json:"department"`
	StaffCode       string    `json:"staff_code"`
	Phone           string    `json:"phone"`
	PhotoURL        string    `json:"photo_url,omitempty"`
	AreasOfInterest []string  `json:"areas_of_interest"`
	Role            Role      `json:"role"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Complete reports whether every field required for registration is filled in.
func (p *Profile) Complete() bool {
	return p != nil && p.Name != "" && p.Department != "" && p.StaffCode != "" && p.Phone != ""
}

// AdminProfile returns the fixed administrative profile written by the admin bootstrap.
func AdminProfile(userID uuid.UUID) *Profile {
	return &Profile{
		UserID:          userID,
		Name:            "System Administrator",
		Department:      "Administration",
		StaffCode:       "ADMIN001",
		Phone:           "+91-9876543210",
		AreasOfInterest: []string{"System Administration", "Faculty Development"},
		Role:            RoleAdmin,
	}
}
