package migration_0

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
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

type TriageAnalysis struct {
	Id    uint64 `gorm:"primaryKey;autoIncrement"`
	PatId *int64
	Label string `gorm:"size:64"`
	Pred  string `gorm:"size:64"`

	PayloadJson   datatypes.JSON `gorm:"not null"`
	ProbaJson     datatypes.JSON `gorm:"not null"`
	InputUsedJson datatypes.JSON `gorm:"not null"`

	CreatedAt time.Time
}

func (TriageAnalysis) TableName() string {
	return "triage_analysis"
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&Patient{}, &Doctor{}, &Appointment{}, &TriageAnalysis{}); err != nil {
		return fmt.Errorf("initial migration failed: %w", err)
	}
	return nil
}
