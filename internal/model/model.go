package model

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

const (
	DefaultMethod         = http.MethodGet
	DefaultExpectedStatus = http.StatusOK
	DefaultTimeoutSeconds = 15
)

// CaseDefinition is one declarative HTTP check as written in the case file.
type CaseDefinition struct {
	Method         string            `json:"method"`
	URL            string            `json:"url" validate:"required"`
	ExpectedStatus int               `json:"expected_status"`
	TimeoutSeconds int               `json:"timeout_sec" validate:"gte=0"`
	Headers        map[string]string `json:"headers,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
	Body           json.RawMessage   `json:"body,omitempty"`   // request payload, sent verbatim
	Schema         json.RawMessage   `json:"schema,omitempty"` // JSON Schema for the response body
}

// Case pairs a definition with its name. A suite is a []Case so that
// execution order always follows the order of the case file.
type Case struct {
	Name       string
	Definition CaseDefinition
}

// Resolved returns a copy with the method normalized and defaults applied.
func (d CaseDefinition) Resolved() CaseDefinition {
	d.Method = strings.ToUpper(strings.TrimSpace(d.Method))
	if d.Method == "" {
		d.Method = DefaultMethod
	}
	if d.ExpectedStatus == 0 {
		d.ExpectedStatus = DefaultExpectedStatus
	}
	if d.TimeoutSeconds == 0 {
		d.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return d
}

// HasBody reports whether a payload should be sent. A JSON null counts as absent.
func (d CaseDefinition) HasBody() bool {
	return !isEmptyJSON(d.Body, false)
}

// HasSchema reports whether the response body must be validated.
// Absent, null and {} schemas are all skipped.
func (d CaseDefinition) HasSchema() bool {
	return !isEmptyJSON(d.Schema, true)
}

func isEmptyJSON(raw json.RawMessage, emptyObject bool) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if !emptyObject || trimmed[0] != '{' {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return false
	}
	return len(obj) == 0
}

// FailureKind classifies why a case failed.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureException       FailureKind = "exception"
	FailureStatusMismatch  FailureKind = "status_mismatch"
	FailureNonJSONResponse FailureKind = "non_json_response"
	FailureSchemaError     FailureKind = "schema_error"
)

// ResultRecord is the outcome of evaluating one case.
type ResultRecord struct {
	CaseName       string
	Method         string
	URL            string
	ExpectedStatus int
	ActualStatus   *int // nil when no response was received
	Passed         bool
	LatencyMs      float64
	Error          string
	Failure        FailureKind
}

// StatusText renders ActualStatus, or "-" when there was no response.
func (r ResultRecord) StatusText() string {
	if r.ActualStatus == nil {
		return "-"
	}
	return strconv.Itoa(*r.ActualStatus)
}
