package handler

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Crockford base32, same alphabet booking codes are generated from.
var bookingCodeRe = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{8}$`)

// RegisterValidations installs custom binding validations. Call once at
// startup before the router handles traffic.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("bookingcode", func(fl validator.FieldLevel) bool {
		return bookingCodeRe.MatchString(fl.Field().String())
	})
}
