package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// Based on NIST 800-63B Guidelines; 72 is the bcrypt input limit.
	rePassword = regexp.MustCompile(`^.{8,72}$`)
	reOTPCode  = regexp.MustCompile(`^[0-9]{6}$`)
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// ValidationError lists failed fields keyed by their JSON name.
type ValidationError struct {
	messages map[string]string
	tags     map[string]string
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if len(ve.messages) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(ve.messages)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field to message map.
func (ve *ValidationError) Values() map[string]string {
	return ve.messages
}

// Tag returns the rule that failed for field, or "" when the field passed.
func (ve *ValidationError) Tag(field string) string {
	return ve.tags[field]
}

// HasTag reports whether any field failed the given rule.
func (ve *ValidationError) HasTag(tag string) bool {
	for _, t := range ve.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NewV10Validator constructs a V10Validator with English translations and custom rules.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := v10CustomValidation(validate, enTrans); err != nil {
		return nil, err
	}

	return &V10Validator{
		validate:   validate,
		translator: enTrans,
	}, nil
}

// Validate validates a struct and returns a *ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return err
	}

	ve := &ValidationError{
		messages: make(map[string]string, len(validateErrs)),
		tags:     make(map[string]string, len(validateErrs)),
	}
	for _, fe := range validateErrs {
		ve.messages[fe.Field()] = fe.Translate(v.translator)
		ve.tags[fe.Field()] = fe.Tag()
	}

	return ve
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func v10CustomValidation(validate *validator.Validate, enTrans ut.Translator) error {
	rules := []struct {
		tag  string
		re   *regexp.Regexp
		text string
	}{
		{tag: "password", re: rePassword, text: "{0} must be 8-72 characters"},
		{tag: "otpcode", re: reOTPCode, text: "{0} must be exactly 6 digits"},
	}

	for _, rule := range rules {
		tag, re, text := rule.tag, rule.re, rule.text
		if err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && re.MatchString(s)
		}); err != nil {
			return err
		}

		if err := validate.RegisterTranslation(tag, enTrans,
			func(ut ut.Translator) error {
				return ut.Add(tag, text, false)
			},
			translate,
		); err != nil {
			return err
		}
	}

	return nil
}

func translate(ut ut.Translator, fe validator.FieldError) string {
	t, err := ut.T(fe.Tag(), fe.Field())
	if err != nil {
		slog.Warn("warning: error translating", "field", fe.Field(), "tag", fe.Tag(), "error", err)
		return fe.Error()
	}
	return t
}
