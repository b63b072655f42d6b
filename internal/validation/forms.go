package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrGoalFieldsRequired   = errors.New("please fill out both your goal and the deadline")
	ErrGoalTooLong          = errors.New("goal must be at most 500 characters")
	ErrCredentialsRequired  = errors.New("email and password cannot be empty")
	ErrVisionKeyRequired    = errors.New("please enter an API key")
	ErrVisionKeyFormat      = errors.New("that does not look like an API key")
	ErrInvalidDeadlineInput = errors.New("deadline must be a valid date and time")
)

// deadlineLayout is what <input type="datetime-local"> submits.
const deadlineLayout = "2006-01-02T15:04"

type GoalForm struct {
	Description string `validate:"required,max=500"`
	Deadline    string `validate:"required"`
}

type CredentialsForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type VisionKeyForm struct {
	APIKey string `validate:"required,min=20,max=200,apikey"`
}

var formErrors = map[string]error{
	"GoalForm.Description.required":     ErrGoalFieldsRequired,
	"GoalForm.Description.max":          ErrGoalTooLong,
	"GoalForm.Deadline.required":        ErrGoalFieldsRequired,
	"CredentialsForm.Email.required":    ErrCredentialsRequired,
	"CredentialsForm.Password.required": ErrCredentialsRequired,
	"VisionKeyForm.APIKey.required":     ErrVisionKeyRequired,
}

var apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// APIKeyValidator accepts the URL-safe characters provider keys are made of.
var APIKeyValidator = func(fl validator.FieldLevel) bool {
	return apiKeyPattern.MatchString(fl.Field().String())
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("apikey", APIKeyValidator); err != nil {
		panic(err)
	}
	return v
}

// Form validates a form struct and returns the first failure as a user-facing error.
func Form(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}

	first := validationErrs[0]
	if mapped, ok := formErrors[first.StructNamespace()+"."+first.Tag()]; ok {
		return mapped
	}
	if strings.HasPrefix(first.StructNamespace(), "VisionKeyForm.") {
		return ErrVisionKeyFormat
	}
	return errors.New(strings.ToLower(first.Field()) + " is invalid")
}

// ParseDeadline reads a datetime-local value. offsetMinutes is the browser's
// Date.getTimezoneOffset(), minutes to add to local time to get UTC.
func ParseDeadline(value, offsetMinutes string) (time.Time, error) {
	loc := time.UTC
	if offsetMinutes != "" {
		offset, err := strconv.Atoi(offsetMinutes)
		if err == nil && offset >= -14*60 && offset <= 14*60 {
			loc = time.FixedZone("", -offset*60)
		}
	}

	t, err := time.ParseInLocation(deadlineLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDeadlineInput
	}
	return t, nil
}
