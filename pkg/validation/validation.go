package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tablechat/tablechat/pkg/mcperr"
)

var (
	v    *validator.Validate
	once sync.Once
)

// Validator returns the shared validator. Field names in messages come from
// json tags so clients see the wire name, not the Go identifier.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return v
}

// ValidateStruct validates a tagged struct and returns a display-ready
// validation error for the first failing field, or nil when valid.
func ValidateStruct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return mcperr.New(mcperr.Validation)
	}
	return mcperr.Newf(mcperr.Validation, "%s", friendlyMessage(ve[0]))
}

func friendlyMessage(fe validator.FieldError) string {
	field := fe.Field()
	if field == "" {
		field = strings.ToLower(fe.StructField())
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "http_url", "url":
		return field + " must be a valid URL"
	case "min", "max", "gte", "lte":
		return field + " must satisfy " + fe.Tag() + "=" + fe.Param()
	}
	return "invalid " + field
}
