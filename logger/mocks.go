package logger

import (
	"io"
)

// MockLogger builds a console-only logger for tests, writing to the given
// writer. Pass io.Discard to silence it; suites that assert on log output
// pass a bytes.Buffer instead.
func MockLogger(writer io.Writer) *Logger {
	config := &Config{
		ConsoleWriters: []io.Writer{writer},
		LogLevel:       Trace,
	}

	if logger, err := New(config); err == nil {
		return logger
	}
	return nil
}
