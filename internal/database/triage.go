package database

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

func InsertTriageAnalysis(ctx context.Context, db *gorm.DB, analysis *TriageAnalysis) error {
	if err := db.WithContext(ctx).Create(analysis).Error; err != nil {
		slog.Error("error saving triage analysis", "pat_id", analysis.PatId, "error", err)
		return fmt.Errorf("error saving triage analysis: %w", err)
	}
	return nil
}

// ListTriageAnalyses returns the analyses recorded for a patient, newest first.
func ListTriageAnalyses(ctx context.Context, db *gorm.DB, patId int64) ([]TriageAnalysis, error) {
	var analyses []TriageAnalysis
	if err := db.WithContext(ctx).
		Where("pat_id = ?", patId).
		Order("created_at DESC").
		Order("id DESC").
		Find(&analyses).Error; err != nil {
		return nil, fmt.Errorf("error listing triage analyses: %w", err)
	}
	return analyses, nil
}

// CountTriageAnalyses returns the number of analyses per patient. Patients
// without analyses are absent from the result.
func CountTriageAnalyses(ctx context.Context, db *gorm.DB, patIds []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(patIds))
	if len(patIds) == 0 {
		return counts, nil
	}

	var rows []struct {
		PatId int64
		Count int64
	}
	if err := db.WithContext(ctx).
		Model(&TriageAnalysis{}).
		Select("pat_id, COUNT(*) AS count").
		Where("pat_id IN ?", patIds).
		Group("pat_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error counting triage analyses: %w", err)
	}

	for _, row := range rows {
		counts[row.PatId] = row.Count
	}
	return counts, nil
}

func GetPatient(ctx context.Context, db *gorm.DB, patId int64) (*Patient, error) {
	var patient Patient
	if err := db.WithContext(ctx).First(&patient, "pat_id = ?", patId).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}
