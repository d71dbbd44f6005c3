package logger

import corelogger "github.com/kilianp07/rota/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. Output follows the last
// call to Configure; without it logs go to stdout, as console text when
// APP_ENV=dev.
func New(component string) Logger {
	return NewZerologLogger(component)
}
