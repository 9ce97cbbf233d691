// Package config handles YAML config file loading for palisade run.
package config

import (
	"os"
	"regexp"
)

// envRef matches ${VAR} and ${VAR:-default}. ${VAR} expands to the variable's
// value or empty when unset; the :- form substitutes the default when the
// variable is unset or empty.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv resolves every env reference in the input.
//
// An unset variable without a default becomes the empty string rather than an
// error; required fields are caught by option validation later.
func ExpandEnv(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(ref string) string {
		groups := envRef.FindStringSubmatch(ref)
		name, def := groups[1], groups[2]

		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
		return def
	})
}
