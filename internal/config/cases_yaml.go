package config

import (
	"encoding/json"
	"os"

	"github.com/Laisky/errors/v2"
	"gopkg.in/yaml.v3"

	"api_smoke_testing/internal/model"
)

// yamlCase mirrors model.CaseDefinition for YAML input, where body and schema
// arrive as decoded values rather than raw JSON.
type yamlCase struct {
	Method         string            `yaml:"method"`
	URL            string            `yaml:"url"`
	ExpectedStatus int               `yaml:"expected_status"`
	TimeoutSeconds int               `yaml:"timeout_sec"`
	Headers        map[string]string `yaml:"headers"`
	Params         map[string]string `yaml:"params"`
	Body           any               `yaml:"body"`
	Schema         any               `yaml:"schema"`
}

func loadYAMLFile(path string) ([]model.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(data)
}

// ParseYAML decodes a YAML mapping of case definitions, keeping key order.
func ParseYAML(data []byte) ([]model.Case, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse yaml")
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Errorf("case file must be a mapping keyed by case name (line %d)", root.Line)
	}

	cases := make([]model.Case, 0, len(root.Content)/2)
	seen := make(map[string]bool, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		name := keyNode.Value
		if seen[name] {
			return nil, errors.Wrapf(ErrDuplicateCase, "%q (line %d)", name, keyNode.Line)
		}
		seen[name] = true

		var yc yamlCase
		if err := valueNode.Decode(&yc); err != nil {
			return nil, errors.Wrapf(err, "decode case %q", name)
		}
		def, err := yc.definition()
		if err != nil {
			return nil, errors.Wrapf(err, "decode case %q", name)
		}
		cases = append(cases, model.Case{Name: name, Definition: def})
	}
	return cases, nil
}

func (yc yamlCase) definition() (model.CaseDefinition, error) {
	def := model.CaseDefinition{
		Method:         yc.Method,
		URL:            yc.URL,
		ExpectedStatus: yc.ExpectedStatus,
		TimeoutSeconds: yc.TimeoutSeconds,
		Headers:        yc.Headers,
		Params:         yc.Params,
	}

	var err error
	if def.Body, err = rawJSON(yc.Body); err != nil {
		return def, errors.Wrap(err, "encode body")
	}
	if def.Schema, err = rawJSON(yc.Schema); err != nil {
		return def, errors.Wrap(err, "encode schema")
	}
	return def, nil
}

func rawJSON(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
