package student

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/academia-app/academia/core"
)

var (
	digitsOnlyTag   = "digitsonly"
	digitsOnlyText  = "only digits are allowed"
	digitsOnlyRegex = regexp.MustCompile(`^[0-9]+$`)
)

func init() {
	_ = core.Validate.RegisterValidation(digitsOnlyTag, digitsOnlyValidation)
	core.RegisterCustomTranslation(digitsOnlyTag, digitsOnlyText)
}

// digitsOnlyValidation only allows decimal digits (phone numbers).
func digitsOnlyValidation(fl validator.FieldLevel) bool {
	return digitsOnlyRegex.MatchString(fl.Field().String())
}
