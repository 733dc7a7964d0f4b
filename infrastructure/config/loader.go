// Package config loads runtime configuration from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/react-agent/domain/config"
)

// Format is a configuration file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

type codec struct {
	decode func([]byte, any) error
	encode func(any) ([]byte, error)
}

var codecs = map[Format]codec{
	FormatYAML: {decode: yaml.Unmarshal, encode: yaml.Marshal},
	FormatJSON: {decode: json.Unmarshal, encode: func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }},
}

var extensions = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
}

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", config.ErrUnsupportedFormat, ext)
}

// Loader reads a configuration document, then expands ${VAR} references,
// applies the REACT_* environment overlay and validates the result.
type Loader struct {
	expandEnv  bool
	strictEnv  bool
	overlayEnv bool
	validate   bool
	lookup     func(string) (string, bool)
}

type LoaderOption func(*Loader)

// WithStrictEnv fails on ${VAR} references to unset variables instead of
// expanding them to "".
func WithStrictEnv(strict bool) LoaderOption {
	return func(l *Loader) { l.strictEnv = strict }
}

func WithEnvOverlay(enabled bool) LoaderOption {
	return func(l *Loader) { l.overlayEnv = enabled }
}

func WithValidation(enabled bool) LoaderOption {
	return func(l *Loader) { l.validate = enabled }
}

// WithLookup replaces os.LookupEnv for both expansion and overlay.
func WithLookup(lookup func(string) (string, bool)) LoaderOption {
	return func(l *Loader) { l.lookup = lookup }
}

// NewLoader expands, overlays and validates unless opts say otherwise.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		expandEnv:  true,
		overlayEnv: true,
		validate:   true,
		lookup:     os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads path. An empty path yields the defaults with the
// environment overlay applied.
func (l *Loader) LoadFile(path string) (*config.Config, error) {
	if path == "" {
		return l.finish(config.Default())
	}

	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	switch {
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}
	return l.decode(data, format)
}

// Load reads a document from r. Fields it omits keep their defaults.
func (l *Loader) Load(r io.Reader, format Format) (*config.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return l.decode(data, format)
}

func (l *Loader) LoadString(content string, format Format) (*config.Config, error) {
	return l.decode([]byte(content), format)
}

func (l *Loader) decode(data []byte, format Format) (*config.Config, error) {
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, format)
	}

	if l.expandEnv {
		expanded, err := (&envExpander{strict: l.strictEnv, lookup: l.lookup}).Expand(string(data))
		if err != nil {
			return nil, err
		}
		data = []byte(expanded)
	}

	cfg := config.Default()
	if err := c.decode(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidFormat, err)
	}
	return l.finish(cfg)
}

func (l *Loader) finish(cfg config.Config) (*config.Config, error) {
	if l.overlayEnv {
		lookup := l.lookup
		if lookup == nil {
			lookup = os.LookupEnv
		}
		if err := applyOverlay(&cfg, lookup); err != nil {
			return nil, err
		}
	}
	if l.validate {
		if err := config.Validate(&cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrValidationFailed, err)
		}
	}
	return &cfg, nil
}

// Marshal encodes cfg, as printed by validate --print.
func Marshal(cfg *config.Config, format Format) ([]byte, error) {
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, format)
	}
	return c.encode(cfg)
}
