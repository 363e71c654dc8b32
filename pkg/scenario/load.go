package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/anomshot/anomshot/pkg/errors"
)

// Load reads every scenario file matched by the given patterns and returns
// the combined batch. Patterns may be literal paths or doublestar globs
// (e.g. "scenarios/**/*.yaml"). Duplicate scenario ids across files fail
// the whole load before any generation starts.
func Load(patterns ...string) ([]Spec, error) {
	paths, err := expand(patterns)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &errors.ValidationError{
			Field:      "scenarios",
			Message:    fmt.Sprintf("no scenario files match %s", strings.Join(patterns, ", ")),
			Suggestion: "check the path or glob pattern",
		}
	}

	var specs []Spec
	seen := make(map[string]string)
	for _, path := range paths {
		file, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		for _, s := range file.Scenarios {
			if prev, dup := seen[s.ID]; dup {
				return nil, &errors.ValidationError{
					Field:      "scenarios.id",
					Message:    fmt.Sprintf("duplicate scenario id %q (in %s and %s)", s.ID, prev, path),
					Suggestion: "scenario ids must be unique across all loaded files",
				}
			}
			seen[s.ID] = path
			specs = append(specs, s)
		}
	}
	return specs, nil
}

// FromPrompt builds a single ad-hoc scenario for `generate --prompt`.
func FromPrompt(prompt string) []Spec {
	return []Spec{{
		ID:       "adhoc",
		Category: "adhoc",
		App:      "adhoc",
		Prompt:   prompt,
	}}
}

// expand resolves glob patterns to a sorted, de-duplicated path list.
func expand(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[{") {
			if _, ok := seen[pattern]; !ok {
				seen[pattern] = struct{}{}
				paths = append(paths, pattern)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, &errors.ValidationError{
				Field:   "scenarios",
				Message: fmt.Sprintf("invalid glob pattern %q: %v", pattern, err),
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// loadFile parses one scenario file, converting YAML to JSON first so the
// schema check applies uniformly.
func loadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:   "scenarios",
			Message: fmt.Sprintf("cannot read scenario file %s: %v", path, err),
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &errors.ValidationError{
				Field:   path,
				Message: fmt.Sprintf("invalid YAML: %v", err),
			}
		}
		data, err = json.Marshal(doc)
		if err != nil {
			return nil, &errors.ValidationError{
				Field:   path,
				Message: fmt.Sprintf("cannot normalize YAML document: %v", err),
			}
		}
	}

	if err := validateDocument(data, path); err != nil {
		return nil, err
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &errors.ValidationError{
			Field:   path,
			Message: fmt.Sprintf("invalid scenario document: %v", err),
		}
	}
	return &file, nil
}
