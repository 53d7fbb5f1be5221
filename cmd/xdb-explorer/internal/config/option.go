package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Option describes one configuration knob: its CLI flag, its TOML key and
// how a raw value lands in the Config field it points at.
type Option struct {
	Name         string
	Usage        string
	TomlKey      string
	ConfigKey    interface{}
	DefaultValue interface{}
	// CustomSetValue overrides the type-inferred parsing of a raw value.
	CustomSetValue func(*Option, interface{}) error
	// Validate runs after all sources have been applied.
	Validate func(*Option) error

	flag *pflag.Flag
}

// getTomlKey returns the option's TOML key, auto-generated from the flag
// name unless explicitly set. "-" disables the TOML source for the option.
func (o Option) getTomlKey() (string, bool) {
	if o.TomlKey == "-" || o.TomlKey == "_" {
		return "", false
	}
	if o.TomlKey != "" {
		return o.TomlKey, true
	}
	return strings.ToUpper(strings.ReplaceAll(o.Name, "-", "_")), true
}

// AddFlag registers the option's CLI flag on the flagset, inferring the flag
// type from the ConfigKey type.
func (o *Option) AddFlag(flagset *pflag.FlagSet) error {
	if o.CustomSetValue != nil {
		if o.DefaultValue == nil {
			o.DefaultValue = ""
		}
		flagset.String(o.Name, fmt.Sprint(o.DefaultValue), o.Usage)
		o.flag = flagset.Lookup(o.Name)
		return nil
	}

	switch o.ConfigKey.(type) {
	case *bool:
		flagset.Bool(o.Name, o.DefaultValue.(bool), o.Usage)
	case *int:
		flagset.Int(o.Name, o.DefaultValue.(int), o.Usage)
	case *time.Duration:
		flagset.Duration(o.Name, o.DefaultValue.(time.Duration), o.Usage)
	case *string:
		flagset.String(o.Name, o.DefaultValue.(string), o.Usage)
	default:
		return fmt.Errorf("unexpected option type %T for %s", o.ConfigKey, o.Name)
	}
	o.flag = flagset.Lookup(o.Name)
	return nil
}

// setValue applies a raw value from any source to the ConfigKey.
func (o *Option) setValue(i interface{}) error {
	if o.CustomSetValue != nil {
		return o.CustomSetValue(o, i)
	}
	switch key := o.ConfigKey.(type) {
	case *bool:
		return parseBool(o, i, key)
	case *int:
		return parseInt(o, i, key)
	case *time.Duration:
		return parseDuration(o, i, key)
	case *string:
		return parseString(o, i, key)
	default:
		return fmt.Errorf("unexpected option type %T for %s", o.ConfigKey, o.Name)
	}
}

// setDefault applies the option's default.
func (o *Option) setDefault() error {
	if o.DefaultValue == nil {
		return nil
	}
	return o.setValue(o.DefaultValue)
}

// setFromFlag applies the CLI flag value if the user supplied one.
func (o *Option) setFromFlag() error {
	if o.flag == nil || !o.flag.Changed {
		return nil
	}
	return o.setValue(o.flag.Value.String())
}
