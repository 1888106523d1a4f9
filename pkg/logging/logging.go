// pkg/logging/logging.go - structured logging for prospect.

package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // "debug", "info", "warn", "error"
	Output  io.Writer // defaults to os.Stderr
	Service string    // attached to every entry, defaults to "prospect"
}

var (
	mu         sync.Mutex
	base       zerolog.Logger
	configured bool
)

// Init configures the global logger. Safe to call more than once; the
// last call wins, which lets the CLI re-apply verbosity after flag parsing.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	configure(cfg)
}

func configure(cfg Config) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}
	service := cfg.Service
	if service == "" {
		service = "prospect"
	}

	base = zerolog.New(writer).With().
		Timestamp().
		Str("service", service).
		Logger()
	configured = true
}

func logger() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !configured {
		configure(Config{})
	}
	return &base
}

// WithComponent returns a child logger annotated with a component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str("component", component).Logger()
}

// The helpers below accept alternating key/value pairs after the message,
// e.g. logging.Info("scan complete", "root", root, "candidates", n).

func Debug(msg string, kv ...interface{}) { emit(logger().Debug(), msg, kv) }
func Info(msg string, kv ...interface{})  { emit(logger().Info(), msg, kv) }
func Warn(msg string, kv ...interface{})  { emit(logger().Warn(), msg, kv) }
func Error(msg string, kv ...interface{}) { emit(logger().Error(), msg, kv) }

func emit(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	if len(kv)%2 == 1 {
		ev = ev.Interface("extra", kv[len(kv)-1])
	}
	ev.Msg(msg)
}
