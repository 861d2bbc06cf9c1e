package accountdelivery

import (
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// ValidPIN validates whether the field holds a 4-digit PIN.
var ValidPIN validator.Func = func(fl validator.FieldLevel) bool {
	if pin, ok := fl.Field().Interface().(string); ok {
		return domain.ValidPIN(pin)
	}
	return false
}
