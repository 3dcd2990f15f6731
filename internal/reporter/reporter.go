package reporter

import (
	"strconv"

	"api_smoke_testing/internal/model"
)

// Headers are the report columns, in order.
var Headers = []string{
	"case_name", "method", "url",
	"expected_status", "actual_status",
	"pass", "latency_ms", "error",
}

// Sink renders a finished run into some durable or visible form.
type Sink interface {
	Write(results []model.ResultRecord) error
}

// Multi writes to each sink in turn and stops at the first error.
type Multi []Sink

func (m Multi) Write(results []model.ResultRecord) error {
	for _, s := range m {
		if err := s.Write(results); err != nil {
			return err
		}
	}
	return nil
}

// Row renders a record as report cells.
func Row(r model.ResultRecord) []string {
	actual := ""
	if r.ActualStatus != nil {
		actual = strconv.Itoa(*r.ActualStatus)
	}
	return []string{
		r.CaseName,
		r.Method,
		r.URL,
		strconv.Itoa(r.ExpectedStatus),
		actual,
		passText(r.Passed),
		formatLatency(r.LatencyMs),
		r.Error,
	}
}

func passText(passed bool) string {
	if passed {
		return "YES"
	}
	return "NO"
}

func formatLatency(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 1, 64)
}

var (
	_ Sink = Multi(nil)
	_ Sink = (*XLSX)(nil)
	_ Sink = (*Table)(nil)
	_ Sink = (*Metrics)(nil)
)
