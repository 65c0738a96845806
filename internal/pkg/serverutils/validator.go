package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = entity.NewValidator()

// ValidateRequest validates a DTO and returns a Validation app error listing every failing field.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Validation("invalid request: %v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), describe(fe)))
	}
	return apperror.Validation("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "max":
		return "longer than " + fe.Param()
	case "category":
		return "not a known category"
	case "skill":
		return "not a known skill"
	default:
		return "invalid (" + fe.Tag() + ")"
	}
}
