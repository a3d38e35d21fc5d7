/*
The logger package wraps zerolog to provide leveled, structured logging across the
client and transport layers. Components receive a logger from their parent and derive
sub-loggers so that every log line carries the component chain that produced it.
*/
package logger

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel = zerolog.Level

const (
	Debug LogLevel = zerolog.DebugLevel
	Info  LogLevel = zerolog.InfoLevel
	Error LogLevel = zerolog.ErrorLevel
	Trace LogLevel = zerolog.TraceLevel
)

type Config struct {
	// Log file location, rotation is handled for us
	FilePath string

	// Any extra writers that should receive console-formatted output
	ConsoleWriters []io.Writer

	LogLevel LogLevel
}

type Logger struct {
	logger zerolog.Logger
}

func New(config *Config) (*Logger, error) {
	// zerolog's global level caps every logger we derive
	zerolog.SetGlobalLevel(zerolog.Level(config.LogLevel))

	writers := []io.Writer{}

	if config.FilePath != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    100, // megabytes
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
		writers = append(writers, fileWriter)
	}

	for _, writer := range config.ConsoleWriters {
		writers = append(writers, zerolog.ConsoleWriter{Out: writer})
	}

	if len(writers) == 0 {
		return nil, fmt.Errorf("logger requires a file path or at least one console writer")
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()

	return &Logger{
		logger: logger,
	}, nil
}

func (l *Logger) GetComponentLogger(component string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("component", component).Logger(),
	}
}

func (l *Logger) GetConnectionLogger(id string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("connection", id).Logger(),
	}
}

// GetStreamLogger derives a sub-logger tagged with the stream id, so lines
// from concurrent exchanges on the same process stay attributable.
func (l *Logger) GetStreamLogger(id string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("stream", id).Logger(),
	}
}

func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

func (l *Logger) Infof(format string, a ...interface{}) {
	l.logger.Info().Msgf(format, a...)
}

func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	l.logger.Debug().Msgf(format, a...)
}

func (l *Logger) Error(err error) {
	l.logger.Error().Msg(err.Error())
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	l.logger.Error().Msgf(format, a...)
}

func (l *Logger) Trace(msg string) {
	l.logger.Trace().Msg(msg)
}

func (l *Logger) Tracef(format string, a ...interface{}) {
	l.logger.Trace().Msgf(format, a...)
}
