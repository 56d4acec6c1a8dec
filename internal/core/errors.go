package core

import (
	"errors"
	"fmt"
)

const (
	CodeModelNotLoaded         = "MODEL_NOT_LOADED"
	CodeExpectedColsNotFound   = "EXPECTED_COLS_NOT_FOUND"
	CodeInvalidTemperatureUnit = "INVALID_TEMPERATURE_UNIT"
	CodePredictFailed          = "PREDICT_FAILED"
)

var (
	ErrModelNotLoaded = errors.New("model is not loaded")
	ErrSchemaNotFound = errors.New("could not detect training columns from pipeline")
)

// ValidationError is returned when a feature row is rejected before it reaches
// the model. It is always a client error.
type ValidationError struct {
	Code     string
	Detail   string
	Received float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}
