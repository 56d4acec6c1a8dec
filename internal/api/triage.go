package api

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"triage-backend/internal/audit"
	"triage-backend/internal/core"
	"triage-backend/internal/database"
	"triage-backend/internal/export"
	"triage-backend/pkg/api"

	"gorm.io/gorm"
)

const predictInfoMessage = "API is working. Use POST with JSON to get prediction."

func (s *TriageService) PredictInfo(r *http.Request) (any, error) {
	res := api.PredictInfoResponse{
		Ok:          true,
		Message:     predictInfoMessage,
		ModelLoaded: s.gateway.Model() != nil,
		Units:       api.DefaultUnits,
	}
	if err := s.gateway.LoadError(); err != nil {
		msg := err.Error()
		res.ModelError = &msg
	}
	if schema := s.gateway.Schema(); schema != nil {
		res.ExpectedColsLoaded = true
		res.ExpectedColsCount = len(schema.Columns)
	}
	if res.ModelLoaded {
		res.Classes = s.gateway.Classes()
	}
	return res, nil
}

func (s *TriageService) Schema(r *http.Request) (any, error) {
	if err := s.gateway.Ready(); err != nil {
		return nil, s.predictError(err)
	}

	schema := s.gateway.Schema()
	return api.SchemaResponse{
		ExpectedCols: schema.Columns,
		Classes:      s.gateway.Classes(),
		IdToLabel:    core.IdToLabel,
		Categories:   schema.Categories,
	}, nil
}

func (s *TriageService) Predict(r *http.Request) (any, error) {
	payload, err := ParseRequest[map[string]any](r)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}

	pred, err := s.gateway.Predict(payload)
	if err != nil {
		return nil, s.predictError(err)
	}

	s.recorder.Record(r.Context(), audit.Entry{
		PatientId: payload["pat_id"],
		Label:     pred.Label,
		Pred:      pred.Raw,
		Row:       pred.Row,
		Proba:     pred.Proba,
		InputUsed: pred.InputUsed,
	})

	return api.PredictResponse{
		Label:     pred.Label,
		Pred:      core.CodedPrediction(pred.Raw),
		ProbaMap:  pred.Proba,
		InputUsed: pred.InputUsed,
		Classes:   s.gateway.Classes(),
		IdToLabel: core.IdToLabel,
		Units:     api.DefaultUnits,
	}, nil
}

// jsonFloat spells out infinities, which JSON numbers cannot carry.
func jsonFloat(f float64) any {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}

func (s *TriageService) predictError(err error) error {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return NamedError(http.StatusBadRequest, verr.Code, errors.New(verr.Detail)).With("received_temperature", jsonFloat(verr.Received))
	case errors.Is(err, core.ErrModelNotLoaded):
		loadErr := s.gateway.LoadError()
		if loadErr == nil {
			loadErr = core.ErrModelNotLoaded
		}
		return NamedError(http.StatusInternalServerError, core.CodeModelNotLoaded, loadErr)
	case errors.Is(err, core.ErrSchemaNotFound):
		return NamedError(http.StatusInternalServerError, core.CodeExpectedColsNotFound, err)
	default:
		slog.Error("prediction failed", "error", err)
		return NamedError(http.StatusInternalServerError, core.CodePredictFailed, err)
	}
}

func (s *TriageService) PatientAnalyses(r *http.Request) (any, error) {
	patId, err := URLParamInt(r, "id")
	if err != nil {
		return nil, err
	}

	analyses, err := database.ListTriageAnalyses(r.Context(), s.db, patId)
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	return convertAnalyses(analyses), nil
}

// parsePatientIds keeps the digit-only entries of a comma separated list.
func parsePatientIds(param string) []int64 {
	var ids []int64
	for _, part := range strings.Split(param, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *TriageService) AnalysisCounts(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.AnalysisCountsParams](r)
	if err != nil {
		return nil, err
	}

	out := map[string]int64{}

	ids := parsePatientIds(strings.TrimSpace(params.Ids))
	if len(ids) == 0 {
		return out, nil
	}

	counts, err := database.CountTriageAnalyses(r.Context(), s.db, ids)
	if err != nil {
		slog.Error("analysis counts failed", "error", err)
		return nil, NamedError(http.StatusInternalServerError, CodeCountsFailed, err)
	}

	for _, id := range ids {
		out[strconv.FormatInt(id, 10)] = counts[id]
	}
	return out, nil
}

func (s *TriageService) ExportCSV(w http.ResponseWriter, r *http.Request) {
	patId, err := URLParamInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()

	patient, err := database.GetPatient(ctx, s.db, patId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, NamedError(http.StatusNotFound, CodePatientNotFound, nil))
			return
		}
		writeError(w, CodedError(http.StatusInternalServerError, err))
		return
	}

	analyses, err := database.ListTriageAnalyses(ctx, s.db, patId)
	if err != nil {
		writeError(w, CodedError(http.StatusInternalServerError, err))
		return
	}

	var schemaCols []string
	if schema := s.gateway.Schema(); schema != nil {
		schemaCols = schema.Columns
	}

	table := export.Flatten(convertIdentity(*patient), convertRecords(analyses), schemaCols)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+export.ExportFilename(patId))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, table); err != nil {
		slog.Error("error writing triage export", "pat_id", patId, "error", err)
	}
}
