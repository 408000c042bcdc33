package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-prayer-verify/internal/domain"
)

// v is the package-level singleton validator. Custom registrations happen in
// init() before the first call to Struct.
var v = validator.New()

func init() {
	// Report fields by their JSON name so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("action_type", func(fl validator.FieldLevel) bool {
		return domain.KnownActions[fl.Field().String()]
	})
	_ = v.RegisterValidation("setting_key", func(fl validator.FieldLevel) bool {
		return domain.KnownSettings[fl.Field().String()]
	})
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Var validates a single value against tag.
func Var(field interface{}, tag string) error {
	return v.Var(field, tag)
}
