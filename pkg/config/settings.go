package config

import (
	"fmt"
	"os"
	"strings"
)

// Sources a Setting value can come from, lowest precedence first.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
)

// Setting is the effective value of one config key.
type Setting struct {
	Key    string
	Value  string
	Source string
}

// Settings is the resolved view of every config key.
type Settings struct {
	// File is the config.toml that was read, or empty when none exists
	File string

	Values []Setting
}

// EnvName returns the environment variable that overrides key,
// e.g. WARREN_API_LISTEN for api.listen.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ResolveSettings layers defaults, config.toml and WARREN_* variables the way
// the commands do and reports the value every key ends up with. Flags are not
// part of the view since they only exist for a single invocation.
func ResolveSettings(configDir string) (*Settings, error) {
	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	keys := ValidConfigKeys()
	s := &Settings{
		File:   v.ConfigFileUsed(),
		Values: make([]Setting, 0, len(keys)),
	}

	for _, key := range keys {
		source := SourceDefault
		if _, ok := os.LookupEnv(EnvName(key)); ok {
			source = SourceEnv
		} else if v.InConfig(key) {
			source = SourceFile
		}

		value := v.GetString(key)
		if key == "events.brokers" {
			value = strings.Join(v.GetStringSlice(key), ",")
		}

		s.Values = append(s.Values, Setting{Key: key, Value: value, Source: source})
	}

	return s, nil
}

// Lookup returns the resolved setting for key.
func (s *Settings) Lookup(key string) (Setting, error) {
	for _, setting := range s.Values {
		if setting.Key == key {
			return setting, nil
		}
	}
	return Setting{}, fmt.Errorf("unknown config key: %q", key)
}
