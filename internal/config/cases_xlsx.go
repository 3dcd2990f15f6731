package config

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/xuri/excelize/v2"

	"api_smoke_testing/internal/model"
)

// Workbook column names. The header row may list them in any order.
const (
	colCaseName       = "case_name"
	colMethod         = "method"
	colURL            = "url"
	colExpectedStatus = "expected_status"
	colTimeout        = "timeout_sec"
	colHeaders        = "headers"
	colParams         = "params"
	colBody           = "body"
	colSchema         = "schema"
)

func loadWorkbook(path, sheet string) ([]model.Case, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheet)
	}
	return parseRows(rows)
}

// parseRows turns a header row plus data rows into cases. Rows without a case
// name are skipped.
func parseRows(rows [][]string) ([]model.Case, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colCaseName, colURL} {
		if _, ok := columns[required]; !ok {
			return nil, errors.Errorf("header row is missing column %q", required)
		}
	}

	var cases []model.Case
	seen := make(map[string]bool)
	for i, row := range rows[1:] {
		line := i + 2
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		name := cell(colCaseName)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, errors.Wrapf(ErrDuplicateCase, "%q (row %d)", name, line)
		}
		seen[name] = true

		def, err := parseRow(cell)
		if err != nil {
			return nil, errors.Wrapf(err, "case %q (row %d)", name, line)
		}
		cases = append(cases, model.Case{Name: name, Definition: def})
	}
	return cases, nil
}

func parseRow(cell func(string) string) (model.CaseDefinition, error) {
	def := model.CaseDefinition{
		Method: cell(colMethod),
		URL:    cell(colURL),
	}

	var err error
	if def.ExpectedStatus, err = parseInt(cell(colExpectedStatus)); err != nil {
		return def, errors.Wrap(err, colExpectedStatus)
	}
	if def.TimeoutSeconds, err = parseInt(cell(colTimeout)); err != nil {
		return def, errors.Wrap(err, colTimeout)
	}
	if def.Headers, err = parseStringMap(cell(colHeaders), false); err != nil {
		return def, errors.Wrap(err, colHeaders)
	}
	if def.Params, err = parseStringMap(cell(colParams), true); err != nil {
		return def, errors.Wrap(err, colParams)
	}
	if def.Body, err = parseRawJSON(cell(colBody)); err != nil {
		return def, errors.Wrap(err, colBody)
	}
	if def.Schema, err = parseRawJSON(cell(colSchema)); err != nil {
		return def, errors.Wrap(err, colSchema)
	}
	return def, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// parseStringMap accepts a JSON object. With allowQuery it also accepts the
// k1=v1&k2=v2 form.
func parseStringMap(s string, allowQuery bool) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "{") || !allowQuery {
		var m map[string]string
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, errors.Wrap(err, "expected a JSON object of strings")
		}
		return m, nil
	}

	m := make(map[string]string)
	for _, pair := range strings.Split(s, "&") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, errors.Errorf("malformed pair %q", pair)
		}
		m[kv[0]] = kv[1]
	}
	return m, nil
}

func parseRawJSON(s string) (json.RawMessage, error) {
	if s == "" {
		return nil, nil
	}
	if !json.Valid([]byte(s)) {
		return nil, errors.New("not valid JSON")
	}
	return json.RawMessage(s), nil
}
