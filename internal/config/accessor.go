package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// GetByPath returns the value at a dot path of JSON field names, e.g.
// "delivery.provider" or "pricing.divisor". Section paths return the
// whole section struct.
func GetByPath(cfg *Config, path string) (any, error) {
	v, err := resolve(cfg, path)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// SetByPath parses raw into the type of the leaf field at path and stores
// it. Sections cannot be replaced wholesale.
func SetByPath(cfg *Config, path, raw string) error {
	v, err := resolve(cfg, path)
	if err != nil {
		return err
	}

	switch {
	case v.Type() == decimalType:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %q is not a decimal number", path, raw)
		}
		v.Set(reflect.ValueOf(d))
	case v.Kind() == reflect.String:
		v.SetString(raw)
	case v.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %q is not true or false", path, raw)
		}
		v.SetBool(b)
	case v.Kind() == reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", path, raw)
		}
		v.SetInt(int64(n))
	case v.Kind() == reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", path, raw)
		}
		v.SetFloat(f)
	case v.Kind() == reflect.Struct:
		return fmt.Errorf("%s is a section; set one of its fields instead", path)
	default:
		return fmt.Errorf("%s: unsupported field type %s", path, v.Type())
	}
	return nil
}

// resolve walks the config structs by json tag.
func resolve(cfg *Config, path string) (reflect.Value, error) {
	if strings.TrimSpace(path) == "" {
		return reflect.Value{}, fmt.Errorf("empty path")
	}
	v := reflect.ValueOf(cfg).Elem()
	for _, key := range strings.Split(path, ".") {
		if v.Kind() != reflect.Struct || v.Type() == decimalType {
			return reflect.Value{}, fmt.Errorf("key not found: %s", path)
		}
		field, ok := fieldByTag(v, key)
		if !ok {
			return reflect.Value{}, fmt.Errorf("key not found: %s", path)
		}
		v = field
	}
	return v, nil
}

func fieldByTag(v reflect.Value, key string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == key {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Sanitize returns a copy of the config with credentials masked.
func Sanitize(cfg *Config) *Config {
	c := *cfg
	c.Responder.APIKey = maskString(c.Responder.APIKey)
	c.Delivery.UltraMsg.Token = maskString(c.Delivery.UltraMsg.Token)
	c.Delivery.WhatsApp.AccessToken = maskString(c.Delivery.WhatsApp.AccessToken)
	c.Delivery.Telegram.Token = maskString(c.Delivery.Telegram.Token)
	c.Server.Secret = maskString(c.Server.Secret)
	c.Catalog.DSN = maskString(c.Catalog.DSN)
	return &c
}

// maskString keeps the first and last 4 characters. Empty values and
// unresolved placeholders are shown as they are.
func maskString(s string) string {
	if s == "" || Unresolved(s) {
		return s
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// Unresolved reports whether s still holds a ${VAR} placeholder, i.e. the
// environment variable it names was not set when the config was loaded.
func Unresolved(s string) bool {
	return envVarPattern.MatchString(s)
}
