package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Host      string `env:"HOST,default=localhost"`
	Port      int    `env:"PORT,default=8080"`
	DebugPort int    `env:"DEBUG_PORT,default=8081"`
	LogLevel  string `env:"LOG_LEVEL,required=true"`

	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	TelemetryInterval    time.Duration `env:"TELEMETRY_INTERVAL,default=5s"`

	CharReplacement string `env:"CHARACTER_REPLACEMENT,required=true"`
	BadgerFilepath  string `env:"BADGER_FILEPATH,required=true"`

	AuthSecret         string `env:"AUTH_SECRET"`
	AllowPlainIdentity bool   `env:"ALLOW_PLAIN_IDENTITY,default=false"`
}

// Validate catches the combinations go-env cannot express: the server must
// have at least one way to establish an identity.
func (c Config) Validate() error {
	if c.AuthSecret == "" && !c.AllowPlainIdentity {
		return fmt.Errorf("either AUTH_SECRET or ALLOW_PLAIN_IDENTITY must be set")
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

// LoggerFromLevel builds the process logger at the configured level.
// Unknown levels fall back to info rather than failing startup.
func LoggerFromLevel(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
