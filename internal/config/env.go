package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "BRANCHTABS_"

// EnvLayer reads settings from environment variables named after the
// setting keys, e.g. BRANCHTABS_MAX_FILES_TO_OPEN for maxFilesToOpen.
type EnvLayer struct {
	prefix  string
	mapping map[string]string // Env var -> setting key
	lookup  func(string) (string, bool)
}

// NewEnvLayer creates an environment layer for prefix, which should
// include the trailing underscore.
func NewEnvLayer(prefix string) *EnvLayer {
	mapping := make(map[string]string, len(Keys))
	for _, key := range Keys {
		mapping[EnvName(prefix, key)] = key
	}
	return &EnvLayer{prefix: prefix, mapping: mapping, lookup: os.LookupEnv}
}

// Name implements Layer.
func (*EnvLayer) Name() string { return "environment" }

// Load implements Layer. Empty values are treated as set.
func (l *EnvLayer) Load(string) (map[string]any, error) {
	values := make(map[string]any)
	for env, key := range l.mapping {
		if val, ok := l.lookup(env); ok {
			values[key] = parseEnvValue(val)
		}
	}
	return values, nil
}

// EnvName converts maxFilesToOpen to PREFIX_MAX_FILES_TO_OPEN.
func EnvName(prefix, key string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// parseEnvValue parses the string into a bool, integer, JSON list or
// comma separated list, falling back to the string itself.
func parseEnvValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if strings.HasPrefix(s, "[") {
		var v []any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}

	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		list := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		return list
	}

	return s
}
