package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// JobPostingSchema describes the trigger payload. Workflow variables may carry
// extra keys, so additional properties are allowed.
const JobPostingSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["job_id", "job_title", "company_name", "city"],
  "properties": {
    "job_id":           {"type": "string", "pattern": "\\S"},
    "job_title":        {"type": "string", "pattern": "\\S"},
    "company_name":     {"type": "string", "pattern": "\\S"},
    "city":             {"type": "string", "pattern": "\\S"},
    "category":         {"type": ["string", "null"]},
    "job_type":         {"type": ["string", "null"]},
    "experience_level": {"type": ["string", "null"]},
    "description":      {"type": ["string", "null"]}
  },
  "additionalProperties": true
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var (
	jobPostingOnce   sync.Once
	jobPostingSchema *gojsonschema.Schema
	jobPostingErr    error
)

// ValidateJobPosting checks a raw JSON document against JobPostingSchema.
// A document that is not JSON at all yields an error, not a result.
func ValidateJobPosting(document []byte) (*ValidationResult, error) {
	jobPostingOnce.Do(func() {
		jobPostingSchema, jobPostingErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(JobPostingSchema))
	})
	if jobPostingErr != nil {
		return nil, fmt.Errorf("compile job posting schema: %w", jobPostingErr)
	}
	return validate(jobPostingSchema, document)
}

func validate(schema *gojsonschema.Schema, document []byte) (*ValidationResult, error) {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldName(re),
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}
	return out, nil
}

// fieldName reports the missing property for "required" errors, which
// gojsonschema attributes to the parent object.
func fieldName(re gojsonschema.ResultError) string {
	if re.Type() == "required" {
		if p, ok := re.Details()["property"].(string); ok {
			return p
		}
	}
	return re.Field()
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
