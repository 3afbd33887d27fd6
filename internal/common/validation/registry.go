package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// registryFile mirrors the subset of configs/activity-registry.json we need
// to validate worker inputs.
type registryFile struct {
	Activities []registryActivity `json:"activities"`
}

type registryActivity struct {
	TaskType    string            `json:"taskType"`
	InputSchema map[string]string `json:"inputSchema"`
}

// LoadActivitySchemas reads the activity registry and returns one input
// schema per task type. Registry entries use a shorthand per field, for
// example "string", "object (optional)" or "integer (optional)"; fields
// without the optional marker become required.
func LoadActivitySchemas(path string) (map[string]JSONSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read activity registry: %w", err)
	}

	var registry registryFile
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}

	schemas := make(map[string]JSONSchema, len(registry.Activities))
	for _, activity := range registry.Activities {
		if activity.TaskType == "" || len(activity.InputSchema) == 0 {
			continue
		}
		schemas[activity.TaskType] = schemaFromShorthand(activity.InputSchema)
	}
	return schemas, nil
}

func schemaFromShorthand(fields map[string]string) JSONSchema {
	schema := JSONSchema{
		Type:                 "object",
		Properties:           make(map[string]Property, len(fields)),
		AdditionalProperties: true,
	}

	for name, shorthand := range fields {
		fieldType, optional := parseShorthand(shorthand)
		schema.Properties[name] = Property{Type: fieldType}
		if !optional {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

// parseShorthand splits "object (optional)" style declarations into the
// JSON type and the optional marker. Enum hints like
// "string (grant_search | related_grants)" only contribute the type.
func parseShorthand(shorthand string) (fieldType string, optional bool) {
	fieldType = shorthand
	if idx := strings.Index(shorthand, "("); idx >= 0 {
		fieldType = strings.TrimSpace(shorthand[:idx])
		optional = strings.Contains(shorthand[idx:], "optional")
	}
	return fieldType, optional
}
