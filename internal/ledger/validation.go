package ledger

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/loyaltyhub/backend/internal/models"
)

// ValidationHelper provides shared command validation
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateCommand checks the struct tags of a command and maps failures onto
// the domain error taxonomy. Validation happens before any lock is taken, so
// a rejected command has zero side effects.
func (vh *ValidationHelper) ValidateCommand(cmd any) error {
	err := vh.validator.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Amount":
			return models.ErrInvalidAmount
		case "JourneyCode", "JourneyTrigger":
			return models.ErrJourneyReferenceRequired
		case "IdempotencyKey":
			return models.ErrIdempotencyKeyRequired
		}
	}
	fe := verrs[0]
	return fmt.Errorf("%w: field %s failed on '%s'", models.ErrValidation, fe.Field(), fe.Tag())
}
