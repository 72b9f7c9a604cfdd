package models

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	perr "smartcamera-hub/internal/errors"
)

var (
	vOnce  sync.Once
	vInst  *validator.Validate
	vTrans ut.Translator
)

func validatorInstance() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// prefer json tag names in messages
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
		vInst, vTrans = v, trans
	})
	return vInst, vTrans
}

// Validate runs struct tag validation and maps the first failure to a
// validation error naming the offending field
func Validate(v any) error {
	val, trans := validatorInstance()
	err := val.Struct(v)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return perr.WithOp(perr.Validationf("%s: %s", fe.Namespace(), fe.Translate(trans)), "validate")
	}
	return perr.Wrap(err, perr.ErrorCodeValidation, "invalid input")
}
