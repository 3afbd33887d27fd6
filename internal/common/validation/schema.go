package validation

import (
	"fmt"
	"regexp"
)

// JSONSchema describes the expected shape of a worker's input variables.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Pattern     *string             `json:"pattern,omitempty"`
	MinLength   *int                `json:"minLength,omitempty"`
	MaxLength   *int                `json:"maxLength,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateInput checks job variables against a schema before a handler runs.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	var errs []ValidationError

	for _, field := range schema.Required {
		if v, exists := input[field]; !exists || v == nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "required field missing",
				Code:    "REQUIRED_FIELD_MISSING",
			})
		}
	}

	for field, value := range input {
		prop, known := schema.Properties[field]
		if !known {
			if !schema.AdditionalProperties {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "field not allowed in schema",
					Code:    "EXTRA_FIELD",
				})
			}
			continue
		}
		if value == nil {
			continue
		}
		errs = append(errs, validateField(field, value, prop)...)
	}

	return &ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

func validateField(field string, value interface{}, prop Property) []ValidationError {
	if err := checkType(value, prop.Type); err != nil {
		return []ValidationError{{
			Field:   field,
			Message: err.Error(),
			Code:    "INVALID_TYPE",
		}}
	}

	var errs []ValidationError

	if s, ok := value.(string); ok {
		errs = append(errs, validateString(field, s, prop)...)
	}

	if n, ok := asNumber(value); ok {
		if prop.Minimum != nil && n < *prop.Minimum {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value must be >= %v", *prop.Minimum),
				Code:    "MINIMUM_VIOLATION",
			})
		}
		if prop.Maximum != nil && n > *prop.Maximum {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value must be <= %v", *prop.Maximum),
				Code:    "MAXIMUM_VIOLATION",
			})
		}
	}

	if items, ok := value.([]interface{}); ok && prop.Items != nil {
		for i, item := range items {
			errs = append(errs, validateField(fmt.Sprintf("%s[%d]", field, i), item, *prop.Items)...)
		}
	}

	if obj, ok := value.(map[string]interface{}); ok && prop.Properties != nil {
		nested := ValidateInput(obj, JSONSchema{
			Type:                 "object",
			Properties:           prop.Properties,
			Required:             prop.Required,
			AdditionalProperties: true,
		})
		for _, nestedErr := range nested.Errors {
			errs = append(errs, ValidationError{
				Field:   field + "." + nestedErr.Field,
				Message: nestedErr.Message,
				Code:    nestedErr.Code,
			})
		}
	}

	return errs
}

func validateString(field, value string, prop Property) []ValidationError {
	var errs []ValidationError

	if prop.MinLength != nil && len(value) < *prop.MinLength {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength),
			Code:    "MIN_LENGTH_VIOLATION",
		})
	}
	if prop.MaxLength != nil && len(value) > *prop.MaxLength {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be at most %d characters", *prop.MaxLength),
			Code:    "MAX_LENGTH_VIOLATION",
		})
	}

	if prop.Pattern != nil {
		matched, err := regexp.MatchString(*prop.Pattern, value)
		if err != nil || !matched {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value must match pattern %s", *prop.Pattern),
				Code:    "PATTERN_MISMATCH",
			})
		}
	}

	if len(prop.Enum) > 0 {
		found := false
		for _, allowed := range prop.Enum {
			if value == allowed {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value must be one of %v", prop.Enum),
				Code:    "INVALID_ENUM_VALUE",
			})
		}
	}

	return errs
}

// asNumber normalizes the numeric types json.Unmarshal and Go callers produce.
func asNumber(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func checkType(value interface{}, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number", "integer":
		if _, ok := asNumber(value); !ok {
			return fmt.Errorf("expected %s, got %T", expected, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	}
	return nil
}

// GetErrorMessages flattens a result into "field: message" strings for logging.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// ValidateActivityNaming checks an activity ID against the registry convention.
func ValidateActivityNaming(activityID string) error {
	namingPattern := regexp.MustCompile(`^[a-z]+(-[a-z]+)*$`)
	if !namingPattern.MatchString(activityID) {
		return fmt.Errorf("activity ID must be kebab-case (e.g., calculate-match-score)")
	}
	return nil
}

// ValidateEmail reports whether the address looks deliverable.
func ValidateEmail(email string) bool {
	emailPattern := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailPattern.MatchString(email)
}

// ValidatePhone accepts E.164-ish numbers with common separators.
func ValidatePhone(phone string) bool {
	phonePattern := regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
	return phonePattern.MatchString(phone)
}

// ValidateURL accepts http, https and ftp URLs.
func ValidateURL(url string) bool {
	urlPattern := regexp.MustCompile(`^(https?|ftp)://[^\s/$.?#].[^\s]*$`)
	return urlPattern.MatchString(url)
}
