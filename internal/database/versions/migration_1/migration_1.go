package migration_1

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const patientIndex = "idx_triage_analysis_patient"

type TriageAnalysis struct {
	Id        uint64    `gorm:"primaryKey"`
	PatId     *int64    `gorm:"index:idx_triage_analysis_patient,priority:1"`
	CreatedAt time.Time `gorm:"index:idx_triage_analysis_patient,priority:2"`
}

func (TriageAnalysis) TableName() string {
	return "triage_analysis"
}

// Migration indexes the audit trail by patient so history, counts and export
// do not scan the whole table.
func Migration(db *gorm.DB) error {
	if db.Migrator().HasIndex(&TriageAnalysis{}, patientIndex) {
		return nil
	}
	if err := db.Migrator().CreateIndex(&TriageAnalysis{}, patientIndex); err != nil {
		return fmt.Errorf("error creating index %s: %w", patientIndex, err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropIndex(&TriageAnalysis{}, patientIndex); err != nil {
		return fmt.Errorf("error dropping index %s: %w", patientIndex, err)
	}
	return nil
}
