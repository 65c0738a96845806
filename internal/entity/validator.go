package entity

import "github.com/go-playground/validator/v10"

// NewValidator returns a validator that knows the category and skill tags
// used by requests and DTOs.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("skill", func(fl validator.FieldLevel) bool {
		return Skill(fl.Field().String()).Valid()
	})
	return v
}
