// Package config layers configuration sources onto an options struct:
// CLI flags beat environment variables beat the TOML config file.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openrestream/restreamd/internal/logging"
)

// envPrefix namespaces the environment variables this process reads.
const envPrefix = "RESTREAMD_"

// LoadConfig fills opts (a pointer to a struct with `toml` and `env`
// tags) from the TOML file named by its Config field and from the
// environment. Fields whose CLI flag was explicitly set keep their
// flag value.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := changedFlags(cmd)

	if path := configPath(v, t); path != "" {
		if err := applyTOML(v, t, path, changed); err != nil {
			return err
		}
	}

	applyEnv(v, t, changed)
	return nil
}

// changedFlags collects the flag names the operator set explicitly.
func changedFlags(cmd *cobra.Command) map[string]bool {
	out := make(map[string]bool)
	if cmd == nil {
		return out
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			out[f.Name] = true
		}
	})
	return out
}

// configPath reads the Config field of the options struct, which names
// the TOML file to layer underneath flags and env.
func configPath(v reflect.Value, t reflect.Type) string {
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).Name == "Config" {
			return v.Field(i).String()
		}
	}
	return ""
}

func applyTOML(v reflect.Value, t reflect.Type, path string, changed map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		// A missing config file is not an error; flags and env still apply.
		return nil
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if changed[flagName(fieldType.Name)] {
			continue
		}
		tomlPath := fieldType.Tag.Get("toml")
		if tomlPath == "" {
			continue
		}
		if value := lookup(doc, tomlPath); value != nil {
			setField(v.Field(i), value)
		}
	}
	return nil
}

func applyEnv(v reflect.Value, t reflect.Type, changed map[string]bool) {
	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if changed[flagName(fieldType.Name)] {
			continue
		}
		envKey := fieldType.Tag.Get("env")
		if envKey == "" {
			continue
		}
		if value := os.Getenv(envPrefix + envKey); value != "" {
			setFieldFromString(v.Field(i), value)
		}
	}
}

// flagName converts a struct field name to its kebab-case CLI flag,
// e.g. "UploadDir" -> "upload-dir".
func flagName(fieldName string) string {
	var out []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			out = append(out, '-')
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// lookup resolves a dotted TOML path against the parsed document.
func lookup(doc map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := doc
	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

func setField(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	}
}

func setFieldFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(n)
		}
	}
}

// LoadLoggingConfig reads the [logging] table from the config file.
// Keys other than level and format set per-module levels. Returns
// defaults when the file is absent or unreadable.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var raw struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}

	for key, value := range raw.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
