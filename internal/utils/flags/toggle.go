// Package flags provides pflag value types shared by the command-line interface.
package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	toggleTrueStringConstant       = "true"
	toggleFalseStringConstant      = "false"
	toggleTypeNameConstant         = "bool"
	togglePlaceholderTrueConstant  = "<YES|no>"
	togglePlaceholderFalseConstant = "<yes|NO>"
	toggleUsageTemplateConstant    = "`%s` %s"
	toggleInvalidValueTemplate     = "invalid toggle value %q (use yes/no, on/off, true/false, 1/0)"
)

var toggleLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"1":     true,
	"false": false,
	"f":     false,
	"no":    false,
	"n":     false,
	"off":   false,
	"0":     false,
}

// InvalidToggleValueError reports a toggle literal that is neither truthy nor falsy.
type InvalidToggleValueError struct {
	Value string
}

func (toggleError InvalidToggleValueError) Error() string {
	return fmt.Sprintf(toggleInvalidValueTemplate, toggleError.Value)
}

// ParseToggle interprets yes/no style literals case-insensitively. An empty value means true.
func ParseToggle(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		return true, nil
	}
	parsedValue, known := toggleLiterals[normalizedValue]
	if !known {
		return false, InvalidToggleValueError{Value: rawValue}
	}
	return parsedValue, nil
}

// AddToggleFlag registers a boolean flag that accepts yes/no style values.
// A bare flag means true; explicit values use the --name=value form so that
// positional directories after the flag are never consumed.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	value := &toggleValue{target: target}
	value.assign(defaultValue)

	registered := flagSet.VarPF(value, name, shorthand, toggleUsage(usage, defaultValue))
	registered.NoOptDefVal = toggleTrueStringConstant
}

func toggleUsage(description string, defaultValue bool) string {
	placeholder := togglePlaceholderFalseConstant
	if defaultValue {
		placeholder = togglePlaceholderTrueConstant
	}
	return strings.TrimSpace(fmt.Sprintf(toggleUsageTemplateConstant, placeholder, strings.TrimSpace(description)))
}

type toggleValue struct {
	enabled bool
	target  *bool
}

func (value *toggleValue) assign(enabled bool) {
	value.enabled = enabled
	if value.target != nil {
		*value.target = enabled
	}
}

func (value *toggleValue) Set(rawValue string) error {
	enabled, parseError := ParseToggle(rawValue)
	if parseError != nil {
		return parseError
	}
	value.assign(enabled)
	return nil
}

func (value *toggleValue) String() string {
	if value != nil && value.enabled {
		return toggleTrueStringConstant
	}
	return toggleFalseStringConstant
}

func (value *toggleValue) Type() string {
	return toggleTypeNameConstant
}
