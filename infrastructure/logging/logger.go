// Package logging provides structured logging using bolt.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

var (
	defaultLogger *bolt.Logger
	once          sync.Once
	mu            sync.RWMutex
)

// Config configures the logger.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn or error.
	Level string `yaml:"level" json:"level"`

	// Format is json or console.
	Format string `yaml:"format" json:"format"`

	// Output defaults to stderr, keeping stdout free for answers and JSON.
	Output io.Writer `yaml:"-" json:"-"`
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stderr,
	}
}

var levels = map[string]bolt.Level{
	"trace": bolt.TRACE,
	"debug": bolt.DEBUG,
	"info":  bolt.INFO,
	"warn":  bolt.WARN,
	"error": bolt.ERROR,
}

// parseLevel maps a configured level name, defaulting to info.
func parseLevel(s string) bolt.Level {
	if l, ok := levels[s]; ok {
		return l
	}
	return bolt.INFO
}

// New builds a logger without touching the package default.
func New(config Config) *bolt.Logger {
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	var handler bolt.Handler = bolt.NewConsoleHandler(output)
	if config.Format == "json" {
		handler = bolt.NewJSONHandler(output)
	}
	return bolt.New(handler).SetLevel(parseLevel(config.Level))
}

// Init installs the package default logger. Only the first call has an
// effect, so the CLI's configuration wins over later library calls.
func Init(config Config) {
	once.Do(func() {
		mu.Lock()
		defaultLogger = New(config)
		mu.Unlock()
	})
}

// Get returns the default logger, installing DefaultConfig if Init was
// never called.
func Get() *bolt.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(DefaultConfig())
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetLevel changes the level of the default logger.
func SetLevel(level string) {
	Get().SetLevel(parseLevel(level))
}

// LogEvent collects Fields for one bolt event.
type LogEvent struct {
	event *bolt.Event
}

// NewEvent wraps e.
func NewEvent(e *bolt.Event) *LogEvent {
	return &LogEvent{event: e}
}

// Add applies f and returns l for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

// Msg writes the event with msg.
func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}

// Send writes the event without a message.
func (l *LogEvent) Send() {
	l.event.Send()
}

func Trace() *LogEvent { return NewEvent(Get().Trace()) }
func Debug() *LogEvent { return NewEvent(Get().Debug()) }
func Info() *LogEvent  { return NewEvent(Get().Info()) }
func Warn() *LogEvent  { return NewEvent(Get().Warn()) }
func Error() *LogEvent { return NewEvent(Get().Error()) }

// Scope logs every event with a fixed set of fields, such as the run
// being executed or the component writing.
type Scope struct {
	logger *bolt.Logger
	fields []Field
}

// With returns a scope on the default logger.
func With(fields ...Field) Scope {
	return Scope{fields: fields}
}

// ForRun returns a scope tagging events with the run ID.
func ForRun(runID string) Scope {
	return With(RunID(runID))
}

// NewScope returns a scope on l instead of the default logger.
func NewScope(l *bolt.Logger, fields ...Field) Scope {
	return Scope{logger: l, fields: fields}
}

// With returns a copy of s with more fields.
func (s Scope) With(fields ...Field) Scope {
	all := make([]Field, 0, len(s.fields)+len(fields))
	all = append(all, s.fields...)
	return Scope{logger: s.logger, fields: append(all, fields...)}
}

func (s Scope) event(level func(*bolt.Logger) *bolt.Event) *LogEvent {
	l := s.logger
	if l == nil {
		l = Get()
	}
	e := NewEvent(level(l))
	for _, f := range s.fields {
		e.Add(f)
	}
	return e
}

func (s Scope) Debug() *LogEvent { return s.event((*bolt.Logger).Debug) }
func (s Scope) Info() *LogEvent  { return s.event((*bolt.Logger).Info) }
func (s Scope) Warn() *LogEvent  { return s.event((*bolt.Logger).Warn) }
func (s Scope) Error() *LogEvent { return s.event((*bolt.Logger).Error) }
