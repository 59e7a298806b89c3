// Package validator wraps go-playground/validator with the rules shared by request payloads
// and configuration: field names follow the json or mapstructure tag, and a cronspec rule
// accepts anything the scheduler's cron parser does.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	if err := v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		return ValidCronSpec(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
})

// ValidationError is one failed rule. Field is the dotted path below the validated value,
// e.g. "scheduler.day_before_hours[1]".
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

func (e ValidationError) String() string {
	if e.Param == "" {
		return e.Field + " failed on " + e.Tag
	}
	return e.Field + " failed on " + e.Tag + "=" + e.Param
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	for i, e := range v {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.String())
	}
	return b.String()
}

// ValidateStruct returns ValidationErrors for rule failures and any other error unchanged.
func ValidateStruct(s any) error {
	err := instance().Struct(s)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{Field: trimRoot(fe.Namespace()), Tag: fe.Tag(), Param: fe.Param()}
	}
	return out
}

// RegisterValidation adds a custom rule to the shared validator.
func RegisterValidation(tag string, fn validator.Func) error {
	return instance().RegisterValidation(tag, fn)
}

// ValidCronSpec accepts five-field expressions and descriptors such as @hourly.
func ValidCronSpec(spec string) bool {
	_, err := cronParser.Parse(strings.TrimSpace(spec))
	return err == nil
}

func fieldName(fld reflect.StructField) string {
	for _, key := range [...]string{"json", "mapstructure"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}

func trimRoot(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
