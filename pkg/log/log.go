package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/piccolo-io/piccolo/pkg/errdefs"
)

// Logger is the process-wide root logger. Components derive child loggers
// from it via WithComponent; Init replaces it once at startup.
var Logger zerolog.Logger

// Config holds logging configuration.
type Config struct {
	// Level is a zerolog level name: debug, info, warn, error.
	// Unknown or empty values fall back to info.
	Level      string
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the root logger. Console output is the default;
// JSONOutput switches to line-delimited JSON for log shippers.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if !cfg.JSONOutput {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	Logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// WithComponent derives a child logger tagged with the component name.
// Every long-running component of the master and the agent takes one at
// construction so log lines are attributable without grep-by-message.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithNode tags a child logger with the node a series of operations
// concerns.
func WithNode(logger zerolog.Logger, nodeName string) zerolog.Logger {
	return logger.With().Str("node_name", nodeName).Logger()
}

// WithResource tags a child logger with a (kind, name) resource identity,
// matching the key layout of the state store.
func WithResource(logger zerolog.Logger, kind, name string) zerolog.Logger {
	return logger.With().Str("kind", kind).Str("name", name).Logger()
}

// Failure logs a classified error with its taxonomy code as a structured
// field. Transient store and transport loss (Unavailable) logs at warn —
// callers retry those, and an etcd blip should not light up the error
// stream; every other class logs at error.
func Failure(logger zerolog.Logger, err error, msg string) {
	event := logger.Error()
	if errdefs.IsUnavailable(err) {
		event = logger.Warn()
	}
	event.Err(err).Str("code", string(errdefs.CodeOf(err))).Msg(msg)
}
