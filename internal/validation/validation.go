package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/go-playground/validator/v10"
)

var (
	personNameRe = regexp.MustCompile(`^[a-zA-Z\s\-'\.]+$`)
	gradeRe      = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.]+$`)
	nonDigitRe   = regexp.MustCompile(`\D`)
)

// Validator wraps go-playground/validator with the student field rules.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		return personNameRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "grade", func(fl validator.FieldLevel) bool {
		return gradeRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "phonedigits", func(fl validator.FieldLevel) bool {
		n := len(nonDigitRe.ReplaceAllString(fl.Field().String(), ""))
		return n >= 10 && n <= 15
	})
	mustRegister(v, "appstatus", func(fl validator.FieldLevel) bool {
		return domain.ApplicationStatus(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Struct validates s and returns a VALIDATION AppError listing failed fields.
func (val *Validator) Struct(s any, message string) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewInternal("Validation could not be performed", err)
	}

	fields := FieldErrors(verrs)
	return domain.NewValidation(message, map[string]any{"field_errors": fields})
}

// FieldErrors flattens validator errors into field -> human message.
func FieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if ns := fe.Namespace(); strings.Count(ns, ".") > 1 {
			field = ns[strings.Index(ns, ".")+1:]
		}
		out[field] = message(fe)
	}
	return out
}

// FieldErrorsOf extracts the field map from an AppError built by Struct.
func FieldErrorsOf(err error) map[string]string {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Details == nil {
		return nil
	}
	fields, _ := appErr.Details["field_errors"].(map[string]string)
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field required"
	case "email":
		return "Value is not a valid email address"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "len":
		return "Country code must be 3 characters (ISO 3166-1 alpha-3)"
	case "alpha":
		return "Country code must contain only letters"
	case "personname":
		return "Name contains invalid characters"
	case "grade":
		return "Grade contains invalid characters"
	case "phonedigits":
		return "Phone number must be 10-15 digits"
	case "appstatus":
		return fmt.Sprintf("Must be one of %v", domain.ApplicationStatuses())
	case "oneof":
		return fmt.Sprintf("Must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}
