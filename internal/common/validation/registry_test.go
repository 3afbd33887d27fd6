package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadActivitySchemas(t *testing.T) {
	path := writeRegistry(t, `{
		"version": "1.0.0",
		"activities": [
			{
				"id": "calculate-match-score",
				"taskType": "calculate-match-score",
				"inputSchema": {
					"companyId": "string",
					"grant": "object",
					"companyProfile": "object (optional)"
				}
			},
			{
				"id": "query-grants",
				"taskType": "query-grants",
				"inputSchema": {
					"queryType": "string (grant_search | related_grants)",
					"filters": "object",
					"pagination": "object"
				}
			}
		]
	}`)

	schemas, err := LoadActivitySchemas(path)
	require.NoError(t, err)
	require.Len(t, schemas, 2)

	cms := schemas["calculate-match-score"]
	assert.Equal(t, "object", cms.Type)
	assert.True(t, cms.AdditionalProperties)
	assert.Equal(t, "string", cms.Properties["companyId"].Type)
	assert.Equal(t, "object", cms.Properties["companyProfile"].Type)
	assert.ElementsMatch(t, []string{"companyId", "grant"}, cms.Required)

	// An enum hint in the shorthand only contributes the type.
	qg := schemas["query-grants"]
	assert.Equal(t, "string", qg.Properties["queryType"].Type)
	assert.ElementsMatch(t, []string{"queryType", "filters", "pagination"}, qg.Required)
}

func TestLoadActivitySchemas_ValidatesRealInput(t *testing.T) {
	path := writeRegistry(t, `{
		"activities": [
			{
				"taskType": "notify-match",
				"inputSchema": {
					"companyId": "string",
					"grantId": "string",
					"matchScore": "integer"
				}
			}
		]
	}`)

	schemas, err := LoadActivitySchemas(path)
	require.NoError(t, err)

	schema := schemas["notify-match"]
	result := ValidateInput(map[string]interface{}{
		"companyId":  "company-001",
		"grantId":    "grant-042",
		"matchScore": float64(85),
	}, schema)
	assert.True(t, result.Valid)

	missing := ValidateInput(map[string]interface{}{
		"companyId": "company-001",
	}, schema)
	assert.False(t, missing.Valid)
}

func TestLoadActivitySchemas_MissingFile(t *testing.T) {
	_, err := LoadActivitySchemas(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadActivitySchemas_SkipsEntriesWithoutSchema(t *testing.T) {
	path := writeRegistry(t, `{
		"activities": [
			{"taskType": "rank-opportunities"},
			{"taskType": "", "inputSchema": {"x": "string"}}
		]
	}`)

	schemas, err := LoadActivitySchemas(path)
	require.NoError(t, err)
	assert.Empty(t, schemas)
}
