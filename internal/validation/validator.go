package validation

import (
	"fmt"
	"reflect"
	"strings"

	"smartcoffee/internal/models"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// New returns a validator that names fields by their json tag and compares
// decimal amounts numerically.
func New() *validatorv10.Validate {
	v := validatorv10.New(validatorv10.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(jsonFieldName)
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	v.RegisterStructValidation(dosagesStructValidation, models.DosagesUpdateRequest{})

	return v
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// dosagesStructValidation rejects a bulk update naming the same id twice.
func dosagesStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(models.DosagesUpdateRequest)

	seen := make(map[uint]bool, len(req.Dosages))
	for i, d := range req.Dosages {
		if d.ID == 0 {
			continue
		}
		if seen[d.ID] {
			sl.ReportError(d.ID, fmt.Sprintf("dosages[%d].id", i), "ID", "unique_id", "")
		}
		seen[d.ID] = true
	}
}

// Messages flattens validation errors into field -> rule.
func Messages(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			field := fe.Namespace()
			if i := strings.Index(field, "."); i >= 0 {
				field = field[i+1:]
			}
			if fe.Param() != "" {
				out[field] = fe.Tag() + "=" + fe.Param()
			} else {
				out[field] = fe.Tag()
			}
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
