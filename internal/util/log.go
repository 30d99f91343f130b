// Package util carries the ambient pieces shared by every binary: leveled
// logging and the link statistics counters.
package util

import (
	"fmt"

	"github.com/pterm/pterm"
)

// logger is the process-wide pterm logger. Millisecond timestamps matter
// here: confirm waits and retry gaps are sub-second.
var logger = func() *pterm.Logger {
	l := pterm.DefaultLogger
	l.ShowTime = true
	l.TimeFormat = "15:04:05.000"
	l.MaxWidth = 1000
	return &l
}()

// Leveled logging functions over the shared logger. Output goes to stderr
// (pterm's default).

func LogDebug(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	logger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	logger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	logger.Error(fmt.Sprintf(format, args...))
}

// EnableDebug lowers the level so debug messages show.
func EnableDebug() {
	logger.Level = pterm.LogLevelDebug
}
