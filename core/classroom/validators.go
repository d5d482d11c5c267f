package classroom

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

var (
	dueDateTag  = "duedate"
	dueDateText = "due date must be a valid DD-MM-YYYY date"
)

// RegisterValidators hooks this package's validations and translations onto
// the app validator.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(dueDateTag, dueDateValidation)
	core.RegisterCustomTranslation(validate, translator, dueDateTag, dueDateText)
}

func dueDateValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(DueDateFormat, fl.Field().String())
	return err == nil
}
