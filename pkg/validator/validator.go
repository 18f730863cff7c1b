package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator implements echo.Validator using go-playground/validator
type CustomValidator struct {
	v *validator.Validate
}

// New creates a new CustomValidator instance
func New() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("filter_clause", validFilterClause)
	return &CustomValidator{v: v}
}

// Validate performs struct validation
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// validFilterClause accepts "name:op:value" record filter clauses. The value
// part may itself contain colons.
func validFilterClause(fl validator.FieldLevel) bool {
	parts := strings.SplitN(fl.Field().String(), ":", 3)
	return len(parts) == 3 && parts[0] != "" && parts[1] != ""
}
