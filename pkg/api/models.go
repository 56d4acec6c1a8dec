package api

// TimeLayout is the layout used for every timestamp rendered by the api.
const TimeLayout = "2006-01-02 15:04:05"

const DateLayout = "2006-01-02"

type Units struct {
	Temperature string `json:"temperature"`
}

var DefaultUnits = Units{Temperature: "Fahrenheit"}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type PredictInfoResponse struct {
	Ok                 bool     `json:"ok"`
	Message            string   `json:"message"`
	ModelLoaded        bool     `json:"model_loaded"`
	ModelError         *string  `json:"model_error"`
	ExpectedColsLoaded bool     `json:"expected_cols_loaded"`
	ExpectedColsCount  int      `json:"expected_cols_count"`
	Classes            []string `json:"classes"`
	Units              Units    `json:"units"`
}

type SchemaResponse struct {
	ExpectedCols []string            `json:"expected_cols"`
	Classes      []string            `json:"classes"`
	IdToLabel    map[int]string      `json:"id_to_label"`
	Categories   map[string][]string `json:"categories,omitempty"`
}

type PredictResponse struct {
	Label string `json:"label"`
	// Pred is an integer for integral predictions and a string otherwise.
	Pred      any                `json:"pred"`
	ProbaMap  map[string]float64 `json:"proba_map"`
	InputUsed any                `json:"input_used"`
	Classes   []string           `json:"classes"`
	IdToLabel map[int]string     `json:"id_to_label"`
	Units     Units              `json:"units"`
}

// TriageAnalysis is a stored prediction. The json columns are returned as
// the strings they were stored as.
type TriageAnalysis struct {
	Id            uint64 `json:"id"`
	PatId         *int64 `json:"pat_id"`
	Label         string `json:"label"`
	Pred          string `json:"pred"`
	PayloadJson   string `json:"payload_json"`
	ProbaJson     string `json:"proba_json"`
	InputUsedJson string `json:"input_used_json"`
	CreatedAt     string `json:"created_at"`
}

type AnalysisCountsParams struct {
	Ids string `schema:"ids"`
}

type Patient struct {
	PatId          int64  `json:"pat_id"`
	PatFirstName   string `json:"pat_first_name"`
	PatLastName    string `json:"pat_last_name"`
	PatInsuranceNo string `json:"pat_insurance_no"`
	PatPhNo        string `json:"pat_ph_no"`
	PatDate        string `json:"pat_date,omitempty"`
	PatAddress     string `json:"pat_address"`
}

type PatientRequest struct {
	PatFirstName   string `json:"pat_first_name"`
	PatLastName    string `json:"pat_last_name"`
	PatInsuranceNo string `json:"pat_insurance_no"`
	PatPhNo        string `json:"pat_ph_no"`
	PatAddress     string `json:"pat_address"`
}

type Doctor struct {
	DocId        int64  `json:"doc_id"`
	DocFirstName string `json:"doc_first_name"`
	DocLastName  string `json:"doc_last_name"`
	DocPhNo      string `json:"doc_ph_no"`
	DocDate      string `json:"doc_date,omitempty"`
	DocAddress   string `json:"doc_address"`
}

type DoctorRequest struct {
	DocFirstName string `json:"doc_first_name"`
	DocLastName  string `json:"doc_last_name"`
	DocPhNo      string `json:"doc_ph_no"`
	DocAddress   string `json:"doc_address"`
}

type Appointment struct {
	AppId           int64  `json:"app_id"`
	PatId           int64  `json:"pat_id"`
	DocId           int64  `json:"doc_id"`
	AppointmentDate string `json:"appointment_date"`
}

type AppointmentRequest struct {
	PatId           int64  `json:"pat_id"`
	DocId           int64  `json:"doc_id"`
	AppointmentDate string `json:"appointment_date"`
}

type DeleteResponse struct {
	Msg string `json:"msg"`
}

type CommonResponse struct {
	Patient     int64 `json:"patient"`
	Doctor      int64 `json:"doctor"`
	Appointment int64 `json:"appointment"`
}

type DatabaseInfo struct {
	Dialect  string `json:"dialect"`
	Database string `json:"database"`
	Version  string `json:"version"`
}
