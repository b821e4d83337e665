package models

import "time"

// ReportType distinguishes lost pets from found pets.
type ReportType string

const (
	// ReportTypeLost is a pet reported missing by its owner.
	ReportTypeLost ReportType = "Lost"
	// ReportTypeFound is a stray reported by whoever found it.
	ReportTypeFound ReportType = "Found"
)

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool {
	return t == ReportTypeLost || t == ReportTypeFound
}

// ReportStatus is the resolution state of a report.
type ReportStatus string

const (
	// ReportStatusOpen is the initial state.
	ReportStatusOpen ReportStatus = "Open"
	// ReportStatusPendingAdoption is only present on legacy rows; eligibility is derived.
	ReportStatusPendingAdoption ReportStatus = "Pending Adoption"
	// ReportStatusClosed is terminal.
	ReportStatusClosed ReportStatus = "Closed"
)

// PetGender is shared by reports and listings.
type PetGender string

const (
	GenderMale    PetGender = "Male"
	GenderFemale  PetGender = "Female"
	GenderUnknown PetGender = "Unknown"
)

// Valid reports whether g is a known gender value.
func (g PetGender) Valid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderUnknown
}

// PetReport is a lost or found pet incident.
type PetReport struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	ReportType        ReportType   `gorm:"type:varchar(20);not null;index" json:"report_type"`
	Status            ReportStatus `gorm:"type:varchar(20);not null;default:'Open';index" json:"status"`
	IsApproved        bool         `gorm:"not null;default:false;index" json:"is_approved"`
	ReporterID        uint         `gorm:"not null;index" json:"reporter_id"`
	Reporter          *User        `gorm:"foreignKey:ReporterID;constraint:OnDelete:CASCADE" json:"reporter,omitempty"`
	Name              string       `gorm:"size:100" json:"name,omitempty"`
	Age               *int         `json:"age"`
	Gender            PetGender    `gorm:"type:varchar(10);not null;default:'Unknown'" json:"gender"`
	PetType           string       `gorm:"size:50;not null" json:"pet_type"`
	Breed             string       `gorm:"size:100" json:"breed,omitempty"`
	Color             string       `gorm:"size:50;not null" json:"color"`
	Location          string       `gorm:"size:255;not null" json:"location"`
	ContactInfo       string       `gorm:"size:255;not null" json:"contact_info"`
	PetImage          string       `gorm:"size:255;not null" json:"pet_image"`
	HealthInformation string       `gorm:"type:text" json:"health_information,omitempty"`
	Injury            string       `gorm:"type:text" json:"injury,omitempty"`
	// DateReported is written once on insert and never updated.
	DateReported time.Time `gorm:"<-:create;not null;index" json:"date_reported"`
	EventDate    time.Time `gorm:"not null" json:"event_date"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for PetReport.
func (PetReport) TableName() string {
	return "pet_reports"
}
