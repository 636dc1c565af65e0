package httpapi

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"nara.lk/portal/internal/translation"
)

// requestValidator implements echo.Validator with json field names in messages.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() *requestValidator {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// lang: a supported target language code.
	_ = v.RegisterValidation("lang", func(fl validator.FieldLevel) bool {
		return translation.IsSupportedLanguage(fl.Field().String())
	})
	_ = v.RegisterTranslation("lang", trans,
		func(t ut.Translator) error {
			return t.Add("lang", "{0} must be a supported language code", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T("lang", fe.Field())
			return msg
		},
	)

	return &requestValidator{validate: v, translator: trans}
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// fieldErrors flattens a validation error into json-field messages.
func (v *requestValidator) fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Translate(v.translator)
		}
		return out
	}
	out["request"] = err.Error()
	return out
}
