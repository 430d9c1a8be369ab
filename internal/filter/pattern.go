package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ErrEmptyPattern indicates a blank exclusion pattern.
var ErrEmptyPattern = errors.New("empty pattern")

// knownFlags are the flags accepted after a delimited pattern.
const knownFlags = "gimsuyd"

// ParsePattern compiles an exclusion pattern.
//
// Two forms are accepted: a bare regular expression ("\.lock$") and a
// delimited form with trailing flags ("/vendor/i"). In the delimited form
// the flags i, m and s map to Go inline flags; g, u, y and d carry no
// meaning for a match test and are ignored. Anything that does not end in
// "/" plus known flags is a bare expression, so "/usr/local" stays literal.
func ParsePattern(raw string) (*regexp.Regexp, error) {
	pattern := strings.TrimSpace(raw)
	if pattern == "" {
		return nil, ErrEmptyPattern
	}

	if body, flags, ok := splitDelimited(pattern); ok {
		var inline strings.Builder
		for _, f := range flags {
			switch f {
			case 'i', 'm', 's':
				if !strings.ContainsRune(inline.String(), f) {
					inline.WriteRune(f)
				}
			}
		}
		pattern = body
		if inline.Len() > 0 {
			pattern = "(?" + inline.String() + ")" + body
		}
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", raw, err)
	}
	return re, nil
}

// splitDelimited splits "/body/flags" into body and flags.
// A pattern is delimited only if it starts with "/" and has a later "/"
// followed by nothing but known flags.
func splitDelimited(pattern string) (body, flags string, ok bool) {
	if len(pattern) < 2 || pattern[0] != '/' {
		return "", "", false
	}
	end := strings.LastIndex(pattern, "/")
	if end == 0 {
		return "", "", false
	}
	flags = pattern[end+1:]
	for _, r := range flags {
		if !strings.ContainsRune(knownFlags, r) {
			return "", "", false
		}
	}
	return pattern[1:end], flags, true
}

// PatternSet is a list of compiled exclusion patterns.
type PatternSet struct {
	patterns []*regexp.Regexp
}

// CompilePatterns compiles every raw pattern. Invalid patterns are logged
// and skipped; the remaining patterns still apply.
func CompilePatterns(raw []string, logger *zap.Logger) *PatternSet {
	if logger == nil {
		logger = zap.NewNop()
	}

	set := &PatternSet{}
	for _, r := range raw {
		re, err := ParsePattern(r)
		if err != nil {
			if !errors.Is(err, ErrEmptyPattern) {
				logger.Warn("ignoring invalid exclusion pattern", zap.String("pattern", r), zap.Error(err))
			}
			continue
		}
		set.patterns = append(set.patterns, re)
	}
	return set
}

// Len returns the number of usable patterns.
func (s *PatternSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Match reports whether any pattern matches value.
func (s *PatternSet) Match(value string) bool {
	if s == nil {
		return false
	}
	for _, re := range s.patterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
