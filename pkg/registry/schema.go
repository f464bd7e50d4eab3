// pkg/registry/schema.go
package registry

// SourceRegistry is the on-disk catalog of queryable data sources.
type SourceRegistry struct {
	Version     string             `json:"version"`
	LastUpdated string             `json:"lastUpdated"`
	Sources     []SourceDefinition `json:"sources"`
}

// SourceDefinition describes one source. Kind is "internal" or "external";
// only external sources carry a BaseURL and pass the rate gate.
type SourceDefinition struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	Description   string `json:"description,omitempty"`
	Kind          string `json:"kind"`
	BaseURL       string `json:"baseUrl,omitempty"`
	APIKeyEnv     string `json:"apiKeyEnv,omitempty"`
	MinIntervalMs int    `json:"minIntervalMs,omitempty"`
	TimeoutMs     int    `json:"timeoutMs,omitempty"`
	MaxResults    int    `json:"maxResults,omitempty"`
	Enabled       bool   `json:"enabled"`
}

// registrySchema validates the registry file on load. A malformed catalog
// should fail startup, not surface as a runtime fan-out error.
const registrySchema = `{
	"type": "object",
	"required": ["version", "sources"],
	"properties": {
		"version": {"type": "string"},
		"lastUpdated": {"type": "string"},
		"sources": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "kind", "enabled"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"displayName": {"type": "string"},
					"description": {"type": "string"},
					"kind": {"type": "string", "enum": ["internal", "external"]},
					"baseUrl": {"type": "string"},
					"apiKeyEnv": {"type": "string"},
					"minIntervalMs": {"type": "integer", "minimum": 0},
					"timeoutMs": {"type": "integer", "minimum": 0},
					"maxResults": {"type": "integer", "minimum": 1},
					"enabled": {"type": "boolean"}
				}
			}
		}
	}
}`
