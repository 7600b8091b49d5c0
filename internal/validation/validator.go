package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-shoplist/internal/items"
)

// New returns a configured validator: field errors are named after json tags,
// "notblank" rejects whitespace-only strings, and items.Patch gets a struct-level
// rule that checks only the fields that are present.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("notblank", notBlank)

	v.RegisterStructValidation(patchStructValidation, items.Patch{})

	return v
}

func notBlank(fl validatorv10.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// patchStructValidation applies the create rules to each field the patch carries.
func patchStructValidation(sl validatorv10.StructLevel) {
	p := sl.Current().Interface().(items.Patch)

	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		sl.ReportError(*p.Name, "name", "Name", "notblank", "")
	}
	if p.Quantity != nil && *p.Quantity <= 0 {
		sl.ReportError(*p.Quantity, "quantity", "Quantity", "gt", "0")
	}
	if p.Unit != nil && strings.TrimSpace(*p.Unit) == "" {
		sl.ReportError(*p.Unit, "unit", "Unit", "notblank", "")
	}
}
