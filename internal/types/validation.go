package types

import (
	"net/mail"
	"sort"
	"strings"
)

// ValidationError collects per-field problems so a caller can surface all of
// them at once. The zero value is ready to use.
type ValidationError struct {
	Fields map[string]string
}

// Add records a message for field. The first message for a field wins.
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	if _, exists := v.Fields[field]; exists {
		return
	}
	v.Fields[field] = message
}

// HasErrors reports whether any field error has been recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// Error implements the error interface. Fields are listed in sorted order.
func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AppError converts the aggregate into a validation_failed AppError with the
// field map under Details["fields"].
func (v *ValidationError) AppError() *AppError {
	fields := make(map[string]any, len(v.Fields))
	for k, msg := range v.Fields {
		fields[k] = msg
	}
	return NewAppErrorWithDetails(ErrCodeValidationFailed, "request validation failed", v, map[string]any{
		"fields": fields,
	})
}

// OrNil returns nil when no field errors were recorded, so callers can write
// `return verr.OrNil()` without returning a typed nil.
func (v *ValidationError) OrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

// IsValidEmail reports whether s parses as a single bare RFC 5322 address.
func IsValidEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s
}
