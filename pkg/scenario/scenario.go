// Package scenario loads and validates generation scenario files.
//
// A scenario file describes a batch of prompts: each scenario names an
// anomaly category, the mobile app whose UI state it depicts, and the
// text prompt sent to the image provider. Files may be JSON or YAML and
// may be selected with glob patterns.
package scenario

import (
	_ "embed"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"github.com/anomshot/anomshot/pkg/errors"
)

//go:embed schema.json
var schemaJSON []byte

// Spec is one generation scenario.
type Spec struct {
	// ID uniquely identifies the scenario within a batch. It names the
	// output image and keys the per-scenario report entry.
	ID string `json:"id" yaml:"id"`

	// Category is the anomaly category this scenario depicts.
	Category string `json:"category" yaml:"category"`

	// App is the mobile application the UI state belongs to.
	App string `json:"app" yaml:"app"`

	// Prompt is the full text prompt sent to the provider.
	Prompt string `json:"prompt" yaml:"prompt"`

	// NegativePrompt lists artifacts the provider should avoid, when the
	// provider supports it.
	NegativePrompt string `json:"negative_prompt,omitempty" yaml:"negative_prompt,omitempty"`

	// Params overrides the provider's default_params for this scenario.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// File is the top-level layout of a scenario document.
type File struct {
	Scenarios []Spec `json:"scenarios" yaml:"scenarios"`
}

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile(schemaJSON)
	if err != nil {
		panic(fmt.Sprintf("scenario: embedded schema does not compile: %v", err))
	}
	return schema
}

// validateDocument checks a raw JSON scenario document against the schema.
func validateDocument(data []byte, source string) error {
	result := compiledSchema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return &errors.ValidationError{
		Field:      source,
		Message:    fmt.Sprintf("scenario file failed schema validation: %v", result.Errors),
		Suggestion: "each scenario requires non-empty id, category, app, and prompt fields",
	}
}
