// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validRegistry = `{
	"version": "1.0",
	"lastUpdated": "2025-06-01",
	"sources": [
		{"id": "internal", "displayName": "Company Index", "kind": "internal", "enabled": true},
		{"id": "externalA", "displayName": "Directory A", "kind": "external",
		 "baseUrl": "https://a.example.com/search", "minIntervalMs": 1000,
		 "timeoutMs": 3000, "maxResults": 10, "enabled": true},
		{"id": "externalB", "displayName": "Directory B", "kind": "external",
		 "baseUrl": "https://b.example.com/search", "enabled": false}
	]
}`

func TestLoadRegistry_Valid(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, validRegistry))
	require.NoError(t, err)

	assert.Equal(t, "1.0", reg.Version)
	require.Len(t, reg.Sources, 3)
	assert.Equal(t, 1000, reg.Sources[1].MinIntervalMs)

	enabled := reg.Enabled()
	require.Len(t, enabled, 2)
	assert.Equal(t, "internal", enabled[0].ID)
	assert.Equal(t, "externalA", enabled[1].ID)
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadRegistry_SchemaViolation(t *testing.T) {
	_, err := LoadRegistry(writeRegistry(t, `{
		"version": "1.0",
		"sources": [{"id": "x", "kind": "weird", "enabled": true}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadRegistry_DuplicateID(t *testing.T) {
	_, err := LoadRegistry(writeRegistry(t, `{
		"version": "1.0",
		"sources": [
			{"id": "externalA", "kind": "external", "baseUrl": "https://a", "enabled": true},
			{"id": "externalA", "kind": "external", "baseUrl": "https://b", "enabled": true}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source id")
}

func TestLoadRegistry_ExternalWithoutBaseURL(t *testing.T) {
	_, err := LoadRegistry(writeRegistry(t, `{
		"version": "1.0",
		"sources": [{"id": "externalA", "kind": "external", "enabled": true}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no baseUrl")
}
