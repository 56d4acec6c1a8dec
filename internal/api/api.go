package api

import (
	"net/http"

	"triage-backend/internal/audit"
	"triage-backend/internal/core"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type TriageService struct {
	db       *gorm.DB
	gateway  *core.Gateway
	recorder audit.Recorder
}

func NewTriageService(db *gorm.DB, gateway *core.Gateway, recorder audit.Recorder) *TriageService {
	return &TriageService{db: db, gateway: gateway, recorder: recorder}
}

func (s *TriageService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Route("/triage", func(r chi.Router) {
		r.Get("/predict", RestHandler(s.PredictInfo))
		r.Post("/predict", RestHandler(s.Predict))
		r.Get("/schema", RestHandler(s.Schema))
		r.Get("/analysis-counts", RestHandler(s.AnalysisCounts))
	})
	r.Get("/patient/{id:[0-9]+}/triage-analyses", RestHandler(s.PatientAnalyses))
	r.Get("/patient/{id:[0-9]+}/triage-export.csv", s.ExportCSV)
}

type HospitalService struct {
	db *gorm.DB
}

func NewHospitalService(db *gorm.DB) *HospitalService {
	return &HospitalService{db: db}
}

func (s *HospitalService) AddRoutes(r chi.Router) {
	r.Route("/patient", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListPatients))
		r.Post("/", RestHandler(s.CreatePatient))
		r.Get("/{id:[0-9]+}", RestHandler(s.GetPatient))
		r.Put("/{id:[0-9]+}", RestHandler(s.UpdatePatient))
		r.Delete("/{id:[0-9]+}", RestHandler(s.DeletePatient))
	})
	r.Route("/doctor", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListDoctors))
		r.Post("/", RestHandler(s.CreateDoctor))
		r.Get("/{id:[0-9]+}", RestHandler(s.GetDoctor))
		r.Put("/{id:[0-9]+}", RestHandler(s.UpdateDoctor))
		r.Delete("/{id:[0-9]+}", RestHandler(s.DeleteDoctor))
	})
	r.Route("/appointment", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListAppointments))
		r.Post("/", RestHandler(s.CreateAppointment))
		r.Get("/{id:[0-9]+}", RestHandler(s.GetAppointment))
		r.Put("/{id:[0-9]+}", RestHandler(s.UpdateAppointment))
		r.Delete("/{id:[0-9]+}", RestHandler(s.DeleteAppointment))
	})
	r.Get("/common", RestHandler(s.Common))
	r.Get("/debug/db", RestHandler(s.DebugDB))
}
