// Package validation checks configuration structs with go-playground
// validator and reports failures as coded validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cross-org/fs/pkg/crossfs"
	"github.com/cross-org/fs/pkg/crossfs/platform"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the crossfs tags registered:
//
//	platform  a name accepted by platform.ByName
//	hashalg   a name accepted by (*crossfs.FS).Hash
//	loglevel  debug, info, warn, warning or error
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their flag name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("flag"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "platform", func(fl validator.FieldLevel) bool {
		return platform.Valid(fl.Field().String())
	})
	mustRegister(v, "hashalg", func(fl validator.FieldLevel) bool {
		name := strings.ToLower(fl.Field().String())
		for _, a := range crossfs.HashAlgorithms() {
			if a == name {
				return true
			}
		}
		return false
	})
	mustRegister(v, "loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "debug", "info", "warn", "warning", "error":
			return true
		}
		return false
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to a validation error whose
// details map field names to messages.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	parts := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msg := friendlyMessage(e)
		fields[e.Field()] = msg
		parts = append(parts, e.Field()+" "+msg)
	}
	return domainerrors.ValidationWithDetails("invalid configuration: "+strings.Join(parts, "; "), fields)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + e.Param()
	case "min", "gte":
		return "must be at least " + e.Param()
	case "max", "lte":
		return "must be at most " + e.Param()
	case "platform":
		return "must be one of: " + strings.Join(platform.Names(), " ")
	case "hashalg":
		return "must be one of: " + strings.Join(crossfs.HashAlgorithms(), " ")
	case "loglevel":
		return "must be one of: debug info warn error"
	default:
		return "is invalid"
	}
}
