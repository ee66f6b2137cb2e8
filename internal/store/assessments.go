package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"medeasy/pos/domain"
)

const assessmentColumns = `id, patient_name, patient_age, patient_gender, chief_complaint, history_present_illness,
	past_medical_history, review_of_systems, investigation, diagnosis, treatment, appointment_date, notes, created_by, created_at`

func (s *Store) CreateAssessment(ctx context.Context, a *domain.Assessment) error {
	a.PatientName = strings.TrimSpace(a.PatientName)
	a.ChiefComplaint = strings.TrimSpace(a.ChiefComplaint)
	switch {
	case a.PatientName == "" || a.ChiefComplaint == "":
		return fmt.Errorf("%w: patient_name and chief_complaint are required", ErrInvalid)
	case a.PatientAge != nil && *a.PatientAge < 0:
		return fmt.Errorf("%w: patient_age must not be negative", ErrInvalid)
	case a.CreatedBy == "":
		return fmt.Errorf("%w: assessment needs an author", ErrInvalid)
	}
	a.ID = newID()
	a.CreatedAt = s.now()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO assessments (`+assessmentColumns+`)
		VALUES (:id, :patient_name, :patient_age, :patient_gender, :chief_complaint, :history_present_illness,
		:past_medical_history, :review_of_systems, :investigation, :diagnosis, :treatment, :appointment_date, :notes,
		:created_by, :created_at)`, a)
	if err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

// ListAssessments returns assessments newest first.
func (s *Store) ListAssessments(ctx context.Context) ([]domain.Assessment, error) {
	assessments := []domain.Assessment{}
	err := s.db.SelectContext(ctx, &assessments,
		`SELECT `+assessmentColumns+` FROM assessments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessments, nil
}

func (s *Store) GetAssessment(ctx context.Context, id string) (*domain.Assessment, error) {
	var a domain.Assessment
	err := s.db.GetContext(ctx, &a, s.q(`SELECT `+assessmentColumns+` FROM assessments WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load assessment %s: %w", id, err)
	}
	return &a, nil
}
