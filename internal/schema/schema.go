// Package schema validates JSON documents against JSON Schema definitions.
// Compiled schemas are cached by content so repeated definitions compile once.
package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/patrickmn/go-cache"
	"github.com/xeipuuv/gojsonschema"
)

const rootField = "(root)"

// ValidationError reports that a document does not conform to its schema.
// Message carries the first violation in the validator's wording.
type ValidationError struct {
	Message    string
	Violations []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validator compiles and applies schemas.
type Validator struct {
	compiled *cache.Cache
}

// NewValidator returns a Validator with an empty schema cache.
func NewValidator() *Validator {
	return &Validator{compiled: cache.New(cache.NoExpiration, 0)}
}

// Validate checks document against the raw schema. It returns a *ValidationError
// when the document is invalid, or a wrapped error when the schema itself cannot
// be compiled.
func (v *Validator) Validate(rawSchema json.RawMessage, document any) error {
	compiled, err := v.compile(rawSchema)
	if err != nil {
		return err
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return errors.Wrap(err, "validate document")
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, describe(re))
	}
	return &ValidationError{Message: violations[0], Violations: violations}
}

// Cached returns the number of distinct compiled schemas.
func (v *Validator) Cached() int {
	return v.compiled.ItemCount()
}

func (v *Validator) compile(rawSchema json.RawMessage) (*gojsonschema.Schema, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, rawSchema); err != nil {
		return nil, errors.Wrap(err, "schema is not valid JSON")
	}

	sum := sha256.Sum256(compact.Bytes())
	key := hex.EncodeToString(sum[:])
	if hit, ok := v.compiled.Get(key); ok {
		return hit.(*gojsonschema.Schema), nil
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(compact.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "compile schema")
	}
	v.compiled.Set(key, compiled, cache.NoExpiration)
	return compiled, nil
}

func describe(re gojsonschema.ResultError) string {
	field := strings.TrimSpace(re.Field())
	if field == "" || field == rootField {
		return re.Description()
	}
	return field + ": " + re.Description()
}
