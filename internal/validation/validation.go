// Package validation checks request structs against their binding tags and
// reports failures as apperr validation errors keyed by json field name.
package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"attendtrack/internal/apperr"
)

var (
	clockRegex = regexp.MustCompile(`^(([01]\d|2[0-3]):[0-5]\d|24:00)$`)

	weekdays = map[string]bool{
		"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
		"friday": true, "saturday": true, "sunday": true,
	}
	statuses = map[string]bool{"present": true, "absent": true, "excused": true, "late": true}
	roles    = map[string]bool{"student": true, "tutor": true, "lecturer": true, "admin": true}
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()
	validate.SetTagName("binding")
	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	register("clock", "{0} must be a time of day formatted HH:MM", func(s string) bool { return clockRegex.MatchString(s) })
	register("weekday", "{0} must be a day of the week", func(s string) bool { return weekdays[strings.ToLower(s)] })
	register("attstatus", "{0} must be one of present, absent, excused, late", func(s string) bool { return statuses[strings.ToLower(s)] })
	register("role", "{0} must be one of student, tutor, lecturer, admin", func(s string) bool { return roles[strings.ToLower(s)] })
	registerText("required", "{0} is required")
}

func register(tag, text string, ok func(string) bool) {
	_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return ok(fl.Field().String())
	})
	registerText(tag, text)
}

func registerText(tag, text string) {
	_ = validate.RegisterTranslation(tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns an apperr validation error describing every failing field.
func Struct(s any) error {
	return FromError(validate.Struct(s))
}

// FromError converts binding and validation failures into an apperr validation error.
func FromError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return apperr.Validation("validation failed", fields)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		return apperr.Validation("invalid request body", map[string]string{typeErr.Field: "has the wrong type"})
	case errors.As(err, &syntaxErr):
		return apperr.Validation("malformed JSON body", nil)
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Validation("invalid request: "+err.Error(), nil)
}

// Gin adapts the shared validator to gin's binding.StructValidator.
type Gin struct{}

// ValidateStruct validates structs and pointers to structs; other values pass.
func (Gin) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(obj)
}

// Engine returns the underlying validator.
func (Gin) Engine() any { return validate }
