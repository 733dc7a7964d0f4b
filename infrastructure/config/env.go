package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/felixgeelhaar/react-agent/domain/config"
)

var (
	bracketVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)
	simpleVar  = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// envExpander substitutes environment variables in configuration text.
//
// Supported forms:
//   - ${VAR}
//   - ${VAR:-default}: default when VAR is unset or empty
//   - ${VAR:?message}: error when VAR is unset or empty
//   - $VAR
type envExpander struct {
	strict  bool
	lookup  func(string) (string, bool)
	missing []string
}

func (e *envExpander) get(name string) (string, bool) {
	if e.lookup == nil {
		return os.LookupEnv(name)
	}
	return e.lookup(name)
}

// Expand returns input with variables substituted. In strict mode an unset
// variable is an error; otherwise it expands to the empty string.
func (e *envExpander) Expand(input string) (string, error) {
	e.missing = nil

	out := bracketVar.ReplaceAllStringFunc(input, func(match string) string {
		name, modifier, _ := strings.Cut(match[2:len(match)-1], ":")
		value, ok := e.get(name)

		switch {
		case strings.HasPrefix(modifier, "-"):
			if !ok || value == "" {
				return modifier[1:]
			}
		case strings.HasPrefix(modifier, "?"):
			if !ok || value == "" {
				e.missing = append(e.missing, fmt.Sprintf("%s: %s", name, modifier[1:]))
				return match
			}
		case !ok:
			e.miss(name)
			return ""
		}
		return value
	})

	out = simpleVar.ReplaceAllStringFunc(out, func(match string) string {
		value, ok := e.get(match[1:])
		if !ok {
			e.miss(match[1:])
			return ""
		}
		return value
	})

	if len(e.missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(e.missing, ", "))
	}
	return out, nil
}

func (e *envExpander) miss(name string) {
	if e.strict {
		e.missing = append(e.missing, name)
	}
}

// ExpandEnv expands variables from the process environment, leaving unset
// ones empty.
func ExpandEnv(input string) string {
	e := &envExpander{}
	out, _ := e.Expand(input)
	return out
}

// ExpandEnvStrict expands variables from the process environment and fails
// on any unset one.
func ExpandEnvStrict(input string) (string, error) {
	e := &envExpander{strict: true}
	return e.Expand(input)
}
