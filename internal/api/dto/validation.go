package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Decode strictly parses a JSON body into out. Unknown fields, trailing data
// and type mismatches are validation errors carrying message.
func Decode(body []byte, out any, message string) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return apperrors.NewValidationError(message, map[string]any{"body": "request body is required"})
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return apperrors.NewValidationError(message, map[string]any{"body": decodeErrorDetail(err)})
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperrors.NewValidationError(message, map[string]any{"body": "unexpected data after JSON object"})
	}
	return nil
}

// DecodeAndValidate decodes then runs struct validation.
func DecodeAndValidate(body []byte, out any, message string) error {
	if err := Decode(body, out, message); err != nil {
		return err
	}
	return Validate(out, message)
}

// Validate runs validator tags on s and maps failures to field details.
func Validate(s any, message string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError(message, nil)
	}
	details := make(map[string]any, len(validationErrors))
	for _, fe := range validationErrors {
		details[fe.Field()] = fieldErrorMessage(fe)
	}
	return apperrors.NewValidationError(message, details)
}

func decodeErrorDetail(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "malformed JSON"
	}
	// encoding/json reports unknown fields as `json: unknown field "x"`.
	return strings.TrimPrefix(err.Error(), "json: ")
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "hexcolor":
		return "must be a hex color"
	case "url":
		return "must be a valid URL"
	case "numeric":
		return "must be a valid number"
	default:
		return fmt.Sprintf("failed validation for '%s'", fe.Tag())
	}
}
