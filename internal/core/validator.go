package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"fixmystreet/internal/types"
)

// Validator wraps go-playground/validator for request-shape checks. Field
// names in errors follow the json tags so they match the request body.
//
// Domain rules (ward resolution, ownership, category membership) stay in the
// lifecycle service; tags here only cover what a malformed request can get
// wrong.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator builds a Validator and registers the custom tags:
//
//	token - a non-empty confirmation token of URL-safe characters
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("token", validateToken)

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct runs the validate tags on s. Field failures are returned as
// a *types.ValidationError; a misuse of the validator itself (non-struct
// input) is an internal error.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		if v.logger != nil {
			v.logger.Error("validator misuse", "error", err)
		}
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation could not run", err)
	}

	verr := &types.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), messageFor(fe))
	}
	return verr
}

// ValidateVar checks a single value against tag and reports it under field.
func (v *Validator) ValidateVar(field string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation could not run", err)
	}
	verr := &types.ValidationError{}
	verr.Add(field, messageFor(fieldErrs[0]))
	return verr
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid e-mail address."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "gt", "min":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "token":
		return "This link is not valid."
	case "url":
		return "Enter a valid URL."
	}
	return fmt.Sprintf("Failed the %q check.", fe.Tag())
}

func validateToken(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > 128 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
