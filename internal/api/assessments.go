package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"medeasy/pos/domain"
)

type assessmentRequest struct {
	PatientName           string `json:"patient_name"`
	PatientAge            *int64 `json:"patient_age"`
	PatientGender         string `json:"patient_gender"`
	ChiefComplaint        string `json:"chief_complaint"`
	HistoryPresentIllness string `json:"history_present_illness"`
	PastMedicalHistory    string `json:"past_medical_history"`
	ReviewOfSystems       string `json:"review_of_systems"`
	Investigation         string `json:"investigation"`
	Diagnosis             string `json:"diagnosis"`
	Treatment             string `json:"treatment"`
	AppointmentDate       string `json:"appointment_date"`
	Notes                 string `json:"notes"`
}

func (h *Handler) listAssessments(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	assessments, err := h.store.ListAssessments(r.Context())
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, assessments)
}

func (h *Handler) getAssessment(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	a, err := h.store.GetAssessment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *Handler) createAssessment(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	var req assessmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	a := domain.Assessment{
		PatientName:           req.PatientName,
		PatientAge:            req.PatientAge,
		PatientGender:         strings.TrimSpace(req.PatientGender),
		ChiefComplaint:        req.ChiefComplaint,
		HistoryPresentIllness: req.HistoryPresentIllness,
		PastMedicalHistory:    req.PastMedicalHistory,
		ReviewOfSystems:       req.ReviewOfSystems,
		Investigation:         req.Investigation,
		Diagnosis:             req.Diagnosis,
		Treatment:             req.Treatment,
		Notes:                 req.Notes,
		CreatedBy:             h.currentUser(r),
	}
	if v := strings.TrimSpace(req.AppointmentDate); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "appointment_date must be in YYYY-MM-DD format")
			return
		}
		a.AppointmentDate = &t
	}
	if err := h.store.CreateAssessment(r.Context(), &a); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}
