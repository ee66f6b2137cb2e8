package domain

import "time"

// Assessment is a clinician's record of a patient consultation.
type Assessment struct {
	ID                    string     `db:"id" json:"id"`
	PatientName           string     `db:"patient_name" json:"patient_name"`
	PatientAge            *int64     `db:"patient_age" json:"patient_age,omitempty"`
	PatientGender         string     `db:"patient_gender" json:"patient_gender"`
	ChiefComplaint        string     `db:"chief_complaint" json:"chief_complaint"`
	HistoryPresentIllness string     `db:"history_present_illness" json:"history_present_illness"`
	PastMedicalHistory    string     `db:"past_medical_history" json:"past_medical_history"`
	ReviewOfSystems       string     `db:"review_of_systems" json:"review_of_systems"`
	Investigation         string     `db:"investigation" json:"investigation"`
	Diagnosis             string     `db:"diagnosis" json:"diagnosis"`
	Treatment             string     `db:"treatment" json:"treatment"`
	AppointmentDate       *time.Time `db:"appointment_date" json:"appointment_date,omitempty"`
	Notes                 string     `db:"notes" json:"notes"`
	CreatedBy             string     `db:"created_by" json:"created_by"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
}
