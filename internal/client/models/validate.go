package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidDraft is returned when a record fails local checks before it is
// sent to the server.
var ErrInvalidDraft = errors.New("invalid draft")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func lazyinit() {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName("validate")
		_ = validate.RegisterValidation("adoption_status", func(fl validator.FieldLevel) bool {
			return AdoptionStatus(fl.Field().String()).Valid()
		})
	})
}

// Valid reports whether s is one of the known adoption statuses.
func (s AdoptionStatus) Valid() bool {
	switch s {
	case AdoptionPending, AdoptionApproved, AdoptionRejected, AdoptionPendingRehome, AdoptionAcceptedRehome:
		return true
	}
	return false
}

// Validate checks v's validate tags. Failures wrap ErrInvalidDraft.
func Validate(v any) error {
	lazyinit()
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalidDraft, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidDraft, err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be an email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", fe.Field(), map[string]string{"gt": ">", "gte": ">="}[fe.Tag()], fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "adoption_status":
		return fe.Field() + " is not a known adoption status"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
