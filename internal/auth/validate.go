package auth

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	nicknamePattern = regexp.MustCompile(`^[가-힣a-zA-Z0-9]+$`)
	passwordPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	letterPattern   = regexp.MustCompile(`[A-Za-z]`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
	birthPattern    = regexp.MustCompile(`^[0-9]{8}$`)
)

// Validator checks request payloads before they are sent.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// NewValidator returns a Validator. now bounds the accepted birth year;
// nil means time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	val := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: now}

	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration errors only happen for an empty tag or nil func.
	_ = val.v.RegisterValidation("nickname", func(fl validator.FieldLevel) bool {
		return nicknamePattern.MatchString(fl.Field().String())
	})
	_ = val.v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return passwordPattern.MatchString(s) && letterPattern.MatchString(s) && digitPattern.MatchString(s)
	})
	_ = val.v.RegisterValidation("yyyymmdd", func(fl validator.FieldLevel) bool {
		return birthPattern.MatchString(fl.Field().String())
	})
	_ = val.v.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
		return val.validBirth(fl.Field().String())
	})

	return val
}

// validBirth checks year 1900..current year, month 1..12, day 1..31.
// Day is not checked against the month length.
func (val *Validator) validBirth(s string) bool {
	if !birthPattern.MatchString(s) {
		return false
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	return year >= 1900 && year <= val.now().Year() &&
		month >= 1 && month <= 12 &&
		day >= 1 && day <= 31
}

// Login validates a login request.
func (val *Validator) Login(req LoginRequest) error {
	return val.check(req)
}

// Signup validates a signup request. Consent is checked first and, if
// missing, is the only thing reported.
func (val *Validator) Signup(req SignupRequest) error {
	if err := val.check(req, "AgreeTerms", "AgreePrivacy"); err != nil {
		return err
	}
	return val.check(req)
}

// SocialLogin validates a social login request.
func (val *Validator) SocialLogin(req SocialLoginRequest) error {
	return val.check(req)
}

// SocialSignup validates a social signup request. Consent is checked first.
func (val *Validator) SocialSignup(req SocialSignupRequest) error {
	if err := val.check(req, "AgreeTerms", "AgreePrivacy"); err != nil {
		return err
	}
	return val.check(req)
}

// check validates s, or only the named fields when given.
func (val *Validator) check(s any, fields ...string) error {
	var err error
	if len(fields) > 0 {
		err = val.v.StructPartial(s, fields...)
	} else {
		err = val.v.Struct(s)
	}
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	return &ValidationError{Fields: formatValidationErrors(verrs)}
}

// formatValidationErrors keeps the first message per field.
func formatValidationErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = fieldMessage(field, fe.Tag(), fe.Param())
	}
	return out
}

func fieldMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return requiredMessages[field]
	case "email":
		return "Invalid email format."
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label(field), param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label(field), param)
	case "nickname":
		return "Nickname may only contain Hangul, letters, and digits."
	case "password":
		return "Password must combine letters and digits only."
	case "yyyymmdd":
		return "Date of birth must be 8 digits (e.g. 19980101)."
	case "birthdate":
		return "Please enter a valid date."
	case "eqfield":
		return "Passwords do not match."
	case "oneof":
		if field == "provider" {
			return "Unsupported social login provider."
		}
		return fmt.Sprintf("%s must be one of: %s.", label(field), strings.ReplaceAll(param, " ", ", "))
	case "eq":
		switch field {
		case "agreeTerms":
			return "You must agree to the terms of service."
		case "agreePrivacy":
			return "You must agree to the privacy policy."
		}
	}
	return fmt.Sprintf("%s is invalid.", label(field))
}

var requiredMessages = map[string]string{
	"email":           "Please enter your email.",
	"password":        "Please enter your password.",
	"passwordConfirm": "Please confirm your password.",
	"nickname":        "Please enter a nickname.",
	"birth":           "Please enter your date of birth.",
	"userType":        "Please choose a user type.",
	"code":            "An authorization code is required.",
	"provider":        "Unsupported social login provider.",
}

func label(field string) string {
	switch field {
	case "nickname":
		return "Nickname"
	case "password":
		return "Password"
	case "userType":
		return "User type"
	}
	return field
}
