package models

import "time"

// AdoptionStatus is the catalog state of a listing.
type AdoptionStatus string

const (
	AdoptionStatusAvailable AdoptionStatus = "Available"
	AdoptionStatusPending   AdoptionStatus = "Pending"
	AdoptionStatusAdopted   AdoptionStatus = "Adopted"
)

// Valid reports whether s is a known listing status.
func (s AdoptionStatus) Valid() bool {
	switch s {
	case AdoptionStatusAvailable, AdoptionStatusPending, AdoptionStatusAdopted:
		return true
	}
	return false
}

// PetForAdoption is an adoption catalog listing.
type PetForAdoption struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Age         int            `gorm:"not null" json:"age"`
	Gender      PetGender      `gorm:"type:varchar(10);not null;default:'Unknown'" json:"gender"`
	PetType     string         `gorm:"size:50;not null" json:"pet_type"`
	Breed       string         `gorm:"size:100" json:"breed,omitempty"`
	Color       string         `gorm:"size:50;not null" json:"color"`
	Image       string         `gorm:"size:255;not null" json:"image"`
	Description string         `gorm:"type:text;not null" json:"description"`
	ListerID    uint           `gorm:"not null;index" json:"lister_id"`
	Lister      *User          `gorm:"foreignKey:ListerID" json:"lister,omitempty"`
	Status      AdoptionStatus `gorm:"type:varchar(10);not null;default:'Available';index" json:"status"`
	// SourceReportID is set when the listing was converted from a Found report.
	SourceReportID *uint     `gorm:"uniqueIndex" json:"source_report_id,omitempty"`
	DateListed     time.Time `gorm:"<-:create;not null;index" json:"date_listed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for PetForAdoption.
func (PetForAdoption) TableName() string {
	return "pets_for_adoption"
}
