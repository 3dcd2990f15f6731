package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"

	"api_smoke_testing/internal/model"
)

var (
	ErrDuplicateCase     = errors.New("duplicate case name")
	ErrUnsupportedFormat = errors.New("unsupported case file format")
)

// LoadCases reads the case file at path and returns its cases in file order.
// The format is picked by extension: .json, .yaml/.yml or .xlsx. sheet only
// applies to workbooks.
func LoadCases(path, sheet string) ([]model.Case, error) {
	var (
		cases []model.Case
		err   error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		cases, err = loadJSONFile(path)
	case ".yaml", ".yml":
		cases, err = loadYAMLFile(path)
	case ".xlsx":
		cases, err = loadWorkbook(path, sheet)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s (%q)", path, ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load cases from %s", path)
	}
	if err := validateCases(cases); err != nil {
		return nil, errors.Wrapf(err, "validate cases from %s", path)
	}
	return cases, nil
}

func loadJSONFile(path string) ([]model.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseJSON(data)
}

// ParseJSON decodes a JSON object of case definitions, keeping key order.
func ParseJSON(data []byte) ([]model.Case, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "read case object")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.Errorf("case file must be a JSON object keyed by case name, got %v", tok)
	}

	cases := []model.Case{}
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "read case name")
		}
		name, _ := tok.(string)
		if seen[name] {
			return nil, errors.Wrapf(ErrDuplicateCase, "%q", name)
		}
		seen[name] = true

		var def model.CaseDefinition
		if err := dec.Decode(&def); err != nil {
			return nil, errors.Wrapf(err, "decode case %q", name)
		}
		cases = append(cases, model.Case{Name: name, Definition: def})
	}

	if _, err := dec.Token(); err != nil {
		return nil, errors.Wrap(err, "read end of case object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after case object")
	}
	return cases, nil
}
