// Package logutil constructs the single process-wide logger every
// component receives by parameter, following the teacher's own
// logfmt-plus-level convention rather than the standard library's
// bare log.Logger.
package logutil

import (
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New builds a logfmt logger writing to stdout with a UTC timestamp on
// every line, filtered to levelName ("debug", "info", "warn", "error";
// defaults to "info" on an unrecognized value).
func New(levelName string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return level.NewFilter(logger, parseLevel(levelName))
}

func parseLevel(name string) level.Option {
	switch strings.ToLower(name) {
	case "debug":
		return level.AllowDebug()
	case "warn", "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
