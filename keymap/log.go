package keymap

import "github.com/btcsuite/btclog"

// log is the package logger. It is disabled by default; callers
// route it into their logging backend with UseLogger.
var log btclog.Logger

func init() {
	DisableLog()
}

// DisableLog disables all package log output.
func DisableLog() {
	log = btclog.Disabled
}

// UseLogger directs package log output to the provided logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
