package api

import (
	"triage-backend/internal/database"
	"triage-backend/internal/export"
	"triage-backend/pkg/api"
)

func convertAnalysis(a database.TriageAnalysis) api.TriageAnalysis {
	return api.TriageAnalysis{
		Id:            a.Id,
		PatId:         a.PatId,
		Label:         a.Label,
		Pred:          a.Pred,
		PayloadJson:   string(a.PayloadJson),
		ProbaJson:     string(a.ProbaJson),
		InputUsedJson: string(a.InputUsedJson),
		CreatedAt:     a.CreatedAt.UTC().Format(api.TimeLayout),
	}
}

func convertAnalyses(as []database.TriageAnalysis) []api.TriageAnalysis {
	analyses := make([]api.TriageAnalysis, 0, len(as))
	for _, a := range as {
		analyses = append(analyses, convertAnalysis(a))
	}
	return analyses
}

func convertRecords(as []database.TriageAnalysis) []export.Record {
	records := make([]export.Record, 0, len(as))
	for _, a := range as {
		records = append(records, export.Record{
			CreatedAt: a.CreatedAt,
			Label:     a.Label,
			Payload:   a.PayloadJson,
		})
	}
	return records
}

func convertIdentity(p database.Patient) export.Identity {
	return export.Identity{
		FirstName:   p.PatFirstName,
		LastName:    p.PatLastName,
		InsuranceNo: p.PatInsuranceNo,
		PhNo:        p.PatPhNo,
		Address:     p.PatAddress,
	}
}

func convertPatient(p database.Patient) api.Patient {
	return api.Patient{
		PatId:          p.PatId,
		PatFirstName:   p.PatFirstName,
		PatLastName:    p.PatLastName,
		PatInsuranceNo: p.PatInsuranceNo,
		PatPhNo:        p.PatPhNo,
		PatDate:        p.PatDate.UTC().Format(api.TimeLayout),
		PatAddress:     p.PatAddress,
	}
}

func convertPatients(ps []database.Patient) []api.Patient {
	patients := make([]api.Patient, 0, len(ps))
	for _, p := range ps {
		patients = append(patients, convertPatient(p))
	}
	return patients
}

func convertDoctor(d database.Doctor) api.Doctor {
	return api.Doctor{
		DocId:        d.DocId,
		DocFirstName: d.DocFirstName,
		DocLastName:  d.DocLastName,
		DocPhNo:      d.DocPhNo,
		DocDate:      d.DocDate.UTC().Format(api.TimeLayout),
		DocAddress:   d.DocAddress,
	}
}

func convertDoctors(ds []database.Doctor) []api.Doctor {
	doctors := make([]api.Doctor, 0, len(ds))
	for _, d := range ds {
		doctors = append(doctors, convertDoctor(d))
	}
	return doctors
}

func convertAppointment(a database.Appointment) api.Appointment {
	return api.Appointment{
		AppId:           a.AppId,
		PatId:           a.PatId,
		DocId:           a.DocId,
		AppointmentDate: a.AppointmentDate.Format(api.DateLayout),
	}
}

func convertAppointments(as []database.Appointment) []api.Appointment {
	appointments := make([]api.Appointment, 0, len(as))
	for _, a := range as {
		appointments = append(appointments, convertAppointment(a))
	}
	return appointments
}
