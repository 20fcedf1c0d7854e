// Package nodeconfig decodes raw node configuration into typed, validated structs.
package nodeconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	_ = v.RegisterValidation("varname", func(fl validator.FieldLevel) bool {
		return models.ValidateVariableName(fl.Field().String()) == nil
	})

	return v
}

// Validator returns the shared validator with the "varname" tag registered.
func Validator() *validator.Validate {
	return validate
}

// Decode copies config into out (a pointer to a struct) and validates it.
// Errors are structured configuration failures.
func Decode(config map[string]any, out any) error {
	if config == nil {
		config = map[string]any{}
	}

	data, err := json.Marshal(config)
	if err != nil {
		return failure.Config("config", err.Error())
	}

	if err := json.Unmarshal(data, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return failure.Config(typeErr.Field, fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value))
		}

		return failure.Config("config", err.Error())
	}

	if err := validate.Struct(out); err != nil {
		return failure.Classify(err, "")
	}

	return nil
}

// OutputVariable returns name, or fallback when name is empty.
func OutputVariable(name, fallback string) string {
	if name == "" {
		return fallback
	}

	return name
}

// Template is a configuration value that is either a literal or a template
// string resolved at execution time. Numbers and booleans decode to their text.
type Template string

func (t *Template) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Template(s)

		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*t = ""
	case float64:
		*t = Template(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		*t = Template(strconv.FormatBool(v))
	default:
		return fmt.Errorf("expected string or number, got %s", string(data))
	}

	return nil
}
