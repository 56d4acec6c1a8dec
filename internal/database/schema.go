package database

import (
	"time"

	"gorm.io/datatypes"
)

type Patient struct {
	PatId          int64 `gorm:"primaryKey;autoIncrement"`
	PatFirstName   string
	PatLastName    string
	PatInsuranceNo string
	PatPhNo        string
	PatDate        time.Time
	PatAddress     string

	Appointments []Appointment `gorm:"foreignKey:PatId;constraint:OnDelete:CASCADE"`
}

func (Patient) TableName() string {
	return "patient"
}

type Doctor struct {
	DocId        int64 `gorm:"primaryKey;autoIncrement"`
	DocFirstName string
	DocLastName  string
	DocPhNo      string
	DocDate      time.Time
	DocAddress   string

	Appointments []Appointment `gorm:"foreignKey:DocId;constraint:OnDelete:CASCADE"`
}

func (Doctor) TableName() string {
	return "doctor"
}

type Appointment struct {
	AppId           int64 `gorm:"primaryKey;autoIncrement"`
	PatId           int64 `gorm:"not null"`
	DocId           int64 `gorm:"not null"`
	AppointmentDate time.Time
}

func (Appointment) TableName() string {
	return "appointment"
}

// TriageAnalysis is one audited prediction. Rows are only ever appended. PatId
// is not a foreign key: predictions may be recorded for unknown patients.
type TriageAnalysis struct {
	Id    uint64 `gorm:"primaryKey;autoIncrement"`
	PatId *int64 `gorm:"index:idx_triage_analysis_patient,priority:1"`
	Label string `gorm:"size:64"`
	Pred  string `gorm:"size:64"`

	PayloadJson   datatypes.JSON `gorm:"not null"`
	ProbaJson     datatypes.JSON `gorm:"not null"`
	InputUsedJson datatypes.JSON `gorm:"not null"`

	CreatedAt time.Time `gorm:"index:idx_triage_analysis_patient,priority:2"`
}

func (TriageAnalysis) TableName() string {
	return "triage_analysis"
}
