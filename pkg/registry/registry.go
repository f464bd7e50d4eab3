// pkg/registry/registry.go

// Package registry loads the source catalog that tells the service which
// company directories exist, how to reach them and how hard they may be hit.
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// LoadRegistry reads and validates the registry file.
func LoadRegistry(path string) (*SourceRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validate(data); err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}

	var reg SourceRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(reg.Sources))
	for _, src := range reg.Sources {
		if seen[src.ID] {
			return nil, fmt.Errorf("registry %s: duplicate source id %q", path, src.ID)
		}
		seen[src.ID] = true
		if src.Kind == "external" && src.Enabled && src.BaseURL == "" {
			return nil, fmt.Errorf("registry %s: external source %q has no baseUrl", path, src.ID)
		}
	}

	return &reg, nil
}

// Enabled returns the enabled sources in file order.
func (r *SourceRegistry) Enabled() []SourceDefinition {
	var out []SourceDefinition
	for _, src := range r.Sources {
		if src.Enabled {
			out = append(out, src)
		}
	}
	return out
}

func validate(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(registrySchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("registry validation failed: %v", errs)
	}

	return nil
}
