package config

import (
	"fmt"
	"strconv"
	"time"
)

func parseBool(option *Option, i interface{}, key *bool) error {
	switch v := i.(type) {
	case nil:
		return nil
	case bool:
		*key = v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean value %s: %s", option.Name, v)
		}
		*key = b
	default:
		return fmt.Errorf("could not parse boolean %s: %v", option.Name, i)
	}
	return nil
}

func parseInt(option *Option, i interface{}, key *int) error {
	switch v := i.(type) {
	case nil:
		return nil
	case int:
		*key = v
	case int64:
		*key = int(v)
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer value %s: %s", option.Name, v)
		}
		*key = parsed
	default:
		return fmt.Errorf("could not parse int %s: %v", option.Name, i)
	}
	return nil
}

func parseDuration(option *Option, i interface{}, key *time.Duration) error {
	switch v := i.(type) {
	case nil:
		return nil
	case time.Duration:
		*key = v
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration value %s: %s", option.Name, v)
		}
		*key = parsed
	case int64:
		// Bare TOML integers are taken as milliseconds.
		*key = time.Duration(v) * time.Millisecond
	default:
		return fmt.Errorf("could not parse duration %s: %v", option.Name, i)
	}
	return nil
}

func parseString(option *Option, i interface{}, key *string) error {
	switch v := i.(type) {
	case nil:
		return nil
	case string:
		*key = v
	default:
		return fmt.Errorf("could not parse string %s: %v", option.Name, i)
	}
	return nil
}
