// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

// Package validation wraps go-playground/validator v10 with a singleton
// instance, the deviceid rule and messages keyed by request parameter name.
//
//	type dayRequest struct {
//	    DeviceID string `query:"deviceId" validate:"required,deviceid"`
//	    Month    int    `query:"month" validate:"min=1,max=12"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    return verr
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/fieldwatch/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// RequestValidationError collects every failed rule of one request.
type RequestValidationError struct {
	Fields []FieldError
}

// Error joins the individual messages.
func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		messages[i] = f.Message
	}
	return strings.Join(messages, "; ")
}

// Details is the payload attached to VALIDATION_FAILED API errors.
func (ve *RequestValidationError) Details() map[string]any {
	if len(ve.Fields) == 1 {
		f := ve.Fields[0]
		return map[string]any{"field": f.Field, "tag": f.Tag, "value": f.Value}
	}
	return map[string]any{"fields": ve.Fields}
}

// New builds a single-field error for checks the struct tags cannot express.
func New(field, tag string, value any, message string) *RequestValidationError {
	return &RequestValidationError{Fields: []FieldError{{
		Field:   field,
		Tag:     tag,
		Value:   value,
		Message: message,
	}}}
}

// GetValidator returns the process-wide validator.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(paramName)
		if err := validate.RegisterValidation("deviceid", validDeviceID); err != nil {
			panic(fmt.Sprintf("validation: register deviceid: %v", err))
		}
	})
	return validate
}

// paramName reports fields by their query or json name.
func paramName(f reflect.StructField) string {
	for _, key := range []string{"query", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func validDeviceID(fl validator.FieldLevel) bool {
	return models.ValidDeviceID(fl.Field().String())
}

// ValidateStruct returns nil when s passes, otherwise the failed rules.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return New("unknown", "unknown", nil, err.Error())
	}

	out := &RequestValidationError{Fields: make([]FieldError, len(fieldErrs))}
	for i, fe := range fieldErrs {
		out.Fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: translate(fe),
		}
	}
	return out
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"deviceid": "%s must be 1 to 32 printable characters without whitespace",
}

var paramTemplates = map[string]string{
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"oneof": "%s must be one of: %s",
}

func translate(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if tmpl, ok := messageTemplates[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := paramTemplates[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
