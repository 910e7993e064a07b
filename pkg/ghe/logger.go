package ghe

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// LogConfig configures the zerolog logger built by NewLogger.
type LogConfig struct {
	Level  string    `json:"level,omitempty"  validate:"omitempty,oneof=debug info warn error"`
	Format string    `json:"format,omitempty" validate:"omitempty,oneof=json console"`
	Output io.Writer `json:"-"`
}

// NewLogger builds a zerolog logger. Defaults: info level, console format on stderr.
func NewLogger(config *LogConfig) (zerolog.Logger, error) {
	if config == nil {
		config = &LogConfig{}
	}

	err := validator.New().Struct(config)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("logger config validation error: %w", err)
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	if config.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	levelName := config.Level
	if levelName == "" {
		levelName = "info"
	}

	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parsing log level: %w", err)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

func (l *ZerologLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error().Fields(fields).Msg(msg)
}
