package dto

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/spm-api/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Nombres de campo según el tag json, para que los errores hablen el idioma del API.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
			}
			return name
		})
	})
	return validate
}

// Validate aplica las reglas `validate` del DTO. Devuelve un error domain.ErrValidation
// con el primer campo inválido y la regla incumplida.
func Validate(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.Validation("campo inválido: " + fe.Field()).
			With("campo", fe.Namespace()).
			With("regla", fe.Tag())
	}
	return domain.Validation(err.Error())
}
