// Package validation checks form structs before anything is sent to the
// backend and reports the first problem as a domain validation error.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/phone"
)

// Custom tags. TagBloodGroup and TagGender accept the empty string so they
// can follow required_if.
const (
	TagPhone      = "bdphone"
	TagBloodGroup = "bloodgroup"
	TagGender     = "gender"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator, configured on first use.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation(TagPhone, func(fl validator.FieldLevel) bool {
			return phone.Valid(fl.Field().String())
		})
		_ = v.RegisterValidation(TagBloodGroup, func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || domain.BloodGroup(s).Valid()
		})
		_ = v.RegisterValidation(TagGender, func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || domain.ValidGender(s)
		})
		instance = v
	})
	return instance
}

// Struct validates s. Missing required fields are reported ahead of any
// other failure so the user fixes empty inputs first.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewValidationError("", err.Error())
	}

	first := fieldErrs[0]
	for _, fe := range fieldErrs {
		if isRequiredTag(fe.Tag()) {
			first = fe
			break
		}
	}
	return toDomainError(first)
}

// Var validates a single value against tag, naming it field in the error.
func Var(field string, value any, tag string) error {
	err := Validator().Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		de := toDomainError(fieldErrs[0])
		de.Field = field
		return de
	}
	return domain.NewValidationError(field, err.Error())
}

func isRequiredTag(tag string) bool {
	return tag == "required" || strings.HasPrefix(tag, "required_")
}

func toDomainError(e validator.FieldError) *domain.Error {
	if e.Tag() == TagPhone {
		return &domain.Error{
			Code:    domain.CodeInvalidPhone,
			Field:   e.Field(),
			Message: domain.ErrInvalidPhoneFormat.Message,
		}
	}
	return domain.NewValidationError(e.Field(), message(e))
}

// message returns a human-readable validation message
func message(e validator.FieldError) string {
	switch {
	case isRequiredTag(e.Tag()):
		return "This field is required"
	}

	switch e.Tag() {
	case "email":
		return "Invalid email format"
	case "min":
		return "Must be at least " + e.Param() + " characters"
	case "max":
		return "Must be at most " + e.Param() + " characters"
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "oneof":
		return "Must be one of: " + e.Param()
	case TagBloodGroup:
		return "Must be one of: " + bloodGroupList()
	case TagGender:
		return "Must be one of: " + strings.Join(domain.Genders, " ")
	case "numeric":
		return "Must be numeric"
	case "datetime":
		return "Invalid format, expected " + e.Param()
	default:
		return "Invalid value"
	}
}

func bloodGroupList() string {
	names := make([]string, len(domain.BloodGroups))
	for i, g := range domain.BloodGroups {
		names[i] = string(g)
	}
	return strings.Join(names, " ")
}
