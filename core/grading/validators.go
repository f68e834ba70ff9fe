package grading

import (
	"math"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	minMaxTag  = "minmax"
	minMaxText = "min and max must be numbers with min <= max"
)

// InitValidators registers the grading validations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(ruleStructValidation, RuleInput{})
	core.RegisterCustomTranslation(validate, translator, minMaxTag, minMaxText)
}

// ruleStructValidation checks that both bounds are finite and min <= max once both are set;
// missing values are reported by their own tags.
func ruleStructValidation(sl validator.StructLevel) {
	r := sl.Current().Interface().(RuleInput)
	if r.Min != nil && !isFinite(*r.Min) {
		sl.ReportError(r.Min, "min", "Min", minMaxTag, "")
		return
	}
	if r.Max != nil && !isFinite(*r.Max) {
		sl.ReportError(r.Max, "max", "Max", minMaxTag, "")
		return
	}
	if r.Min == nil || r.Max == nil {
		return
	}
	if *r.Min > *r.Max {
		sl.ReportError(r.Max, "max", "Max", minMaxTag, "")
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
