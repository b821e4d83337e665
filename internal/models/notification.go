package models

import "time"

// Notification is an in-app message for one recipient, optionally tied to a report.
// At most one notification exists per (recipient, report) pair.
type Notification struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RecipientID uint       `gorm:"not null;uniqueIndex:idx_notifications_recipient_report;index" json:"recipient_id"`
	Recipient   *User      `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"-"`
	PetReportID *uint      `gorm:"uniqueIndex:idx_notifications_recipient_report" json:"pet_report_id,omitempty"`
	PetReport   *PetReport `gorm:"foreignKey:PetReportID;constraint:OnDelete:CASCADE" json:"pet_report,omitempty"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	IsRead      bool       `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt   time.Time  `json:"created_at"`
}
