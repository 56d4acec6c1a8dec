package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
)

const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
	CodePatientNotFound = "PATIENT_NOT_FOUND"
	CodeCountsFailed    = "COUNTS_FAILED"
)

// codedError carries the http status and the machine readable error code
// rendered in the json error body. Fields are added to the body next to
// "error" and "detail".
type codedError struct {
	err    error
	code   int
	name   string
	fields map[string]any
}

func (e *codedError) Error() string {
	if e.err == nil {
		return e.name
	}
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func (e *codedError) With(key string, value any) *codedError {
	if e.fields == nil {
		e.fields = make(map[string]any)
	}
	e.fields[key] = value
	return e
}

func (e *codedError) body() map[string]any {
	body := make(map[string]any, len(e.fields)+2)
	for k, v := range e.fields {
		body[k] = v
	}
	body["error"] = e.name
	if e.err != nil {
		body["detail"] = e.err.Error()
	}
	return body
}

func defaultName(code int) string {
	switch {
	case code == http.StatusNotFound:
		return CodeNotFound
	case code >= 400 && code < 500:
		return CodeBadRequest
	default:
		return CodeInternal
	}
}

func CodedError(code int, err error) error {
	return &codedError{err: err, code: code, name: defaultName(code)}
}

func CodedErrorf(code int, format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: code, name: defaultName(code)}
}

// NamedError is a coded error with an explicit error code. A nil err renders
// without a detail.
func NamedError(code int, name string, err error) *codedError {
	return &codedError{err: err, code: code, name: name}
}

func ParseRequest[T any](r *http.Request) (T, error) {
	var data T
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&data); err != nil {
		slog.Error("error parsing request body", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request body")
	}
	return data, nil
}

func ParseRequestQueryParams[T any](r *http.Request) (T, error) {
	var data T
	if err := r.ParseForm(); err != nil {
		slog.Error("error parsing form", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request query params")
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&data, r.Form); err != nil {
		slog.Error("error decoding query params", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request query params")
	}

	return data, nil
}

func writeError(w http.ResponseWriter, err error) {
	var cerr *codedError
	if !errors.As(err, &cerr) {
		slog.Error("recieved non coded error from endpoint", "error", err)
		cerr = &codedError{err: err, code: http.StatusInternalServerError, name: CodeInternal}
	} else if cerr.code >= http.StatusInternalServerError {
		slog.Error("internal server error received in endpoint", "error", err)
	}
	writeJson(w, cerr.code, cerr.body())
}

func RestHandler(handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			writeError(w, err)
			return
		}

		if res == nil {
			res = struct{}{}
		}

		WriteJsonResponse(w, res)
	}
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	writeJson(w, http.StatusOK, data)
}

func writeJson(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("error serializing response body", "error", err)
		http.Error(w, fmt.Sprintf("error serializing response body: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		slog.Error("error writing response body", "error", err)
	}
}

func URLParamInt(r *http.Request, key string) (int64, error) {
	param := chi.URLParam(r, key)

	if len(param) == 0 {
		return 0, CodedErrorf(http.StatusBadRequest, "missing {%v} url parameter", key)
	}

	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		return 0, CodedErrorf(http.StatusBadRequest, "invalid integer '%v' url parameter provided: %w", key, err)
	}

	return id, nil
}
