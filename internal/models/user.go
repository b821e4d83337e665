// Package models defines the persistent domain types and the API error envelope.
package models

import "time"

// ProfileRole is the display role stored on a profile.
type ProfileRole string

const (
	// ProfileRoleUser marks a regular member.
	ProfileRoleUser ProfileRole = "user"
	// ProfileRoleAdmin marks a staff member.
	ProfileRoleAdmin ProfileRole = "admin"
)

// User is an account with credentials and capability flags.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	IsStaff     bool      `gorm:"not null;default:false;index" json:"is_staff"`
	IsSuperuser bool      `gorm:"not null;default:false;index" json:"is_superuser"`
	Profile     *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsElevated reports whether the user holds staff or superuser capability.
func (u *User) IsElevated() bool {
	return u.IsStaff || u.IsSuperuser
}

// Profile carries the per-user display role and optional contact details.
type Profile struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	UserID         uint        `gorm:"uniqueIndex;not null" json:"user_id"`
	Role           ProfileRole `gorm:"type:varchar(10);not null;default:'user'" json:"role"`
	Age            *int        `json:"age"`
	City           string      `gorm:"size:100" json:"city,omitempty"`
	Phone          string      `gorm:"size:20" json:"phone_number,omitempty"`
	ProfilePicture string      `gorm:"size:255" json:"profile_picture,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
