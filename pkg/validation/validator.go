package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// canonicalUUIDLength is the length of the hyphenated 8-4-4-4-12 form
const canonicalUUIDLength = 36

// Validator performs field validation on request input
type Validator struct {
	config *ValidationConfig
}

// ValidationConfig defines validation rules
type ValidationConfig struct {
	// MaxLabelLength is the maximum number of runes in a free-text label
	MaxLabelLength int
	// AllowEmptyLabel permits blank labels
	AllowEmptyLabel bool
}

// DefaultValidationConfig returns default validation settings
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxLabelLength:  120,
		AllowEmptyLabel: false,
	}
}

// NewValidator creates a new validator
func NewValidator(config *ValidationConfig) *Validator {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &Validator{config: config}
}

// ValidationError represents a validation failure scoped to one field
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-scoped validation error
func NewValidationError(field, rule, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err wraps a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsValidationError extracts the first *ValidationError in err's chain
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ValidationResult contains validation errors
type ValidationResult struct {
	Errors []*ValidationError
	Valid  bool
}

// Err returns the first validation error, or nil when the input is valid
func (r *ValidationResult) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Fields returns the names of every field that failed validation
func (r *ValidationResult) Fields() []string {
	fields := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

// Validate collects the given check results. Nil results are successes.
func (v *Validator) Validate(checks ...*ValidationError) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]*ValidationError, 0),
	}
	for _, c := range checks {
		if c != nil {
			result.Errors = append(result.Errors, c)
		}
	}
	result.Valid = len(result.Errors) == 0
	return result
}

// UUIDv4 checks that value is a canonical UUID v4 string
func (v *Validator) UUIDv4(field, value string) *ValidationError {
	_, err := ParseUUIDv4(field, value)
	if err != nil {
		return err.(*ValidationError)
	}
	return nil
}

// Label checks a free-text label against the configured bounds
func (v *Validator) Label(field, value string) *ValidationError {
	_, err := v.NormalizeLabel(field, value)
	if err != nil {
		return err.(*ValidationError)
	}
	return nil
}

// NormalizeLabel trims surrounding whitespace and validates the result
func (v *Validator) NormalizeLabel(field, value string) (string, error) {
	label := strings.TrimSpace(value)
	if label == "" {
		if v.config.AllowEmptyLabel {
			return "", nil
		}
		return "", NewValidationError(field, "required", "is required")
	}
	if !utf8.ValidString(label) {
		return "", NewValidationError(field, "encoding", "must be valid UTF-8")
	}
	if n := utf8.RuneCountInString(label); v.config.MaxLabelLength > 0 && n > v.config.MaxLabelLength {
		return "", NewValidationError(field, "length", "must be at most %d characters", v.config.MaxLabelLength)
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return "", NewValidationError(field, "charset", "must not contain control characters")
		}
	}
	return label, nil
}

// ParseUUIDv4 parses value as a canonical hyphenated UUID v4.
// Braced, URN and unhyphenated forms are rejected.
func ParseUUIDv4(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, NewValidationError(field, "required", "is required")
	}
	if len(value) != canonicalUUIDLength {
		return uuid.Nil, NewValidationError(field, "format", "must be a valid UUID")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, NewValidationError(field, "format", "must be a valid UUID")
	}
	if id.Version() != 4 || id.Variant() != uuid.RFC4122 {
		return uuid.Nil, NewValidationError(field, "version", "must be a UUID v4")
	}
	return id, nil
}
