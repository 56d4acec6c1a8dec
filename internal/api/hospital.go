package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"triage-backend/internal/database"
	"triage-backend/pkg/api"

	"gorm.io/gorm"
)

const deletedMsg = "sucessfully deleted"

func (s *HospitalService) ListPatients(r *http.Request) (any, error) {
	var patients []database.Patient
	if err := s.db.WithContext(r.Context()).Order("pat_date DESC").Find(&patients).Error; err != nil {
		slog.Error("error listing patients", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing patients")
	}
	return convertPatients(patients), nil
}

func (s *HospitalService) CreatePatient(r *http.Request) (any, error) {
	req, err := ParseRequest[api.PatientRequest](r)
	if err != nil {
		return nil, err
	}

	patient := database.Patient{
		PatFirstName:   req.PatFirstName,
		PatLastName:    req.PatLastName,
		PatInsuranceNo: req.PatInsuranceNo,
		PatPhNo:        req.PatPhNo,
		PatDate:        time.Now().UTC(),
		PatAddress:     req.PatAddress,
	}
	if err := s.db.WithContext(r.Context()).Create(&patient).Error; err != nil {
		slog.Error("error creating patient", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating patient")
	}

	return api.Patient{
		PatId:          patient.PatId,
		PatFirstName:   req.PatFirstName,
		PatLastName:    req.PatLastName,
		PatInsuranceNo: req.PatInsuranceNo,
		PatPhNo:        req.PatPhNo,
		PatAddress:     req.PatAddress,
	}, nil
}

// GetPatient returns a list holding the matching patient, or an empty list.
func (s *HospitalService) GetPatient(r *http.Request) (any, error) {
	id, err := URLParamInt(r, "id")
	if err != nil {
		return nil, err
	}

	var patients []database.Patient
	if err := s.db.WithContext(r.Context()).Where("pat_id = ?", id).Find(&patients).Error; err != nil {
		slog.Error("error getting patient", "pat_id", id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving patient record")
	}
	return convertPatients(patients), nil
}

func (s *HospitalService) UpdatePatient(r *http.Request) (any, error) {
	id, err := URLParamInt(r, "id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.PatientRequest](r)
	if err != nil {
		return nil, err
	}

	err = s.update(r.Context(), &database.Patient{}, "pat_id", id, map[string]any{
		"pat_first_name":   req.PatFirstName,
		"pat_last_name":    req.PatLastName,
		"pat_insurance_no": req.PatInsuranceNo,
		"pat_ph_no":        req.PatPhNo,
		"pat_address":      req.PatAddress,
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *HospitalService) DeletePatient(r *http.Request) (any, error) {
	return s.delete(r, &database.Patient{}, "pat_id")
}

func (s *HospitalService) ListDoctors(r *http.Request) (any, error) {
	var doctors []database.Doctor
	if err := s.db.WithContext(r.Context()).Order("doc_date DESC").Find(&doctors).Error; err != nil {
		slog.Error("error listing doctors", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing doctors")
	}
	return convertDoctors(doctors), nil
}

func (s *HospitalService) CreateDoctor(r *http.Request) (any, error) {
	req, err := ParseRequest[api.DoctorRequest](r)
	if err != nil {
		return nil, err
	}

	doctor := database.Doctor{
		DocFirstName: req.DocFirstName,
		DocLastName:  req.DocLastName,
		DocPhNo:      req.DocPhNo,
		DocDate:      time.Now().UTC(),
		DocAddress:   req.DocAddress,
	}
	if err := s.db.WithContext(r.Context()).Create(&doctor).Error; err != nil {
		slog.Error("error creating doctor", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating doctor")
	}

	return api.Doctor{
		DocId:        doctor.DocId,
		DocFirstName: req.DocFirstName,
		DocLastName:  req.DocLastName,
		DocPhNo:      req.DocPhNo,
		DocAddress:   req.DocAddress,
	}, nil
}

func (s *HospitalService) GetDoctor(r *http.Request) (any, error) {
	id, err := URLParamInt(r, "id")
	if err != nil {
		return nil, err
	}

	var doctors []database.Doctor
	if err := s.db.WithContext(r.Context()).Where("doc_id = ?", id).Find(&doctors).Error; err != nil {
		slog.Error("error getting doctor", "doc_id", id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving doctor record")
	}
	return convertDoctors(doctors), nil
}

func (s *HospitalService) UpdateDoctor(r *http.Request) (any, error) {
	id, err := URLParamInt(r, "id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.DoctorRequest](r)
	if err != nil {
		return nil, err
	}

	err = s.update(r.Context(), &database.Doctor{}, "doc_id", id, map[string]any{
		"doc_first_name": req.DocFirstName,
		"doc_last_name":  req.DocLastName,
		"doc_ph_no":      req.DocPhNo,
		"doc_address":    req.DocAddress,
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *HospitalService) DeleteDoctor(r *http.Request) (any, error) {
	return s.delete(r, &database.Doctor{}, "doc_id")
}

func (s *HospitalService) ListAppointments(r *http.Request) (any, error) {
	var appointments []database.Appointment
	if err := s.db.WithContext(r.Context()).Order("appointment_date DESC").Order("app_id DESC").Find(&appointments).Error; err != nil {
		slog.Error("error listing appointments", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing appointments")
	}
	return convertAppointments(appointments), nil
}

func (s *HospitalService) parseAppointment(ctx context.Context, req api.AppointmentRequest) (time.Time, error) {
	date, err := time.Parse(api.DateLayout, req.AppointmentDate)
	if err != nil {
		return time.Time{}, CodedErrorf(http.StatusBadRequest, "invalid appointment_date '%s', expected YYYY-MM-DD", req.AppointmentDate)
	}

	if err := s.exists(ctx, &database.Patient{}, "pat_id", req.PatId); err != nil {
		return time.Time{}, err
	}
	if err := s.exists(ctx, &database.Doctor{}, "doc_id", req.DocId); err != nil {
		return time.Time{}, err
	}
	return date, nil
}

func (s *HospitalService) CreateAppointment(r *http.Request) (any, error) {
	req, err := ParseRequest[api.AppointmentRequest](r)
	if err != nil {
		return nil, err
	}

	date, err := s.parseAppointment(r.Context(), req)
	if err != nil {
		return nil, err
	}

	appointment := database.Appointment{PatId: req.PatId, DocId: req.DocId, AppointmentDate: date}
	if err := s.db.WithContext(r.Context()).Create(&appointment).Error; err != nil {
		slog.Error("error creating appointment", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating appointment")
	}
	return convertAppointment(appointment), nil
}

func (s *HospitalService) GetAppointment(r *http.Request) (any, error) {
	id, err := URLParamInt(r, "id")
	if err != nil {
		return nil, err
	}

	var appointments []database.Appointment
	if err := s.db.WithContext(r.Context()).Where("app_id = ?", id).Find(&appointments).Error; err != nil {
		slog.Error("error getting appointment", "app_id", id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving appointment record")
	}
	return convertAppointments(appointments), nil
}

func (s *HospitalService) UpdateAppointment(r *http.Request) (any, error) {
	id, err := URLParamInt(r, "id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.AppointmentRequest](r)
	if err != nil {
		return nil, err
	}

	date, err := s.parseAppointment(r.Context(), req)
	if err != nil {
		return nil, err
	}

	err = s.update(r.Context(), &database.Appointment{}, "app_id", id, map[string]any{
		"pat_id":           req.PatId,
		"doc_id":           req.DocId,
		"appointment_date": date,
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *HospitalService) DeleteAppointment(r *http.Request) (any, error) {
	return s.delete(r, &database.Appointment{}, "app_id")
}

func (s *HospitalService) Common(r *http.Request) (any, error) {
	ctx := r.Context()

	var res api.CommonResponse
	for _, c := range []struct {
		model any
		count *int64
	}{
		{&database.Patient{}, &res.Patient},
		{&database.Doctor{}, &res.Doctor},
		{&database.Appointment{}, &res.Appointment},
	} {
		if err := s.db.WithContext(ctx).Model(c.model).Count(c.count).Error; err != nil {
			slog.Error("error counting records", "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "error counting records")
		}
	}
	return res, nil
}

func (s *HospitalService) DebugDB(r *http.Request) (any, error) {
	info, err := database.Describe(s.db.WithContext(r.Context()))
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}
	return api.DatabaseInfo{Dialect: info.Dialect, Database: info.Database, Version: info.Version}, nil
}

func (s *HospitalService) exists(ctx context.Context, model any, column string, id int64) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where(column+" = ?", id).Count(&count).Error; err != nil {
		slog.Error("error checking record", column, id, "error", err)
		return CodedErrorf(http.StatusInternalServerError, "error checking %s", column)
	}
	if count == 0 {
		return CodedErrorf(http.StatusBadRequest, "no record with %s %d", column, id)
	}
	return nil
}

func (s *HospitalService) update(ctx context.Context, model any, column string, id int64, values map[string]any) error {
	result := s.db.WithContext(ctx).Model(model).Where(column+" = ?", id).Updates(values)
	if result.Error != nil {
		slog.Error("error updating record", column, id, "error", result.Error)
		return CodedError(http.StatusInternalServerError, fmt.Errorf("error updating record: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return CodedError(http.StatusNotFound, fmt.Errorf("no record with %s %d: %w", column, id, gorm.ErrRecordNotFound))
	}
	return nil
}

// delete succeeds whether or not the record exists.
func (s *HospitalService) delete(r *http.Request, model any, column string) (any, error) {
	id, err := URLParamInt(r, "id")
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(r.Context()).Where(column+" = ?", id).Delete(model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return api.DeleteResponse{Msg: deletedMsg}, nil
		}
		slog.Error("error deleting record", column, id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error deleting record")
	}
	return api.DeleteResponse{Msg: deletedMsg}, nil
}
