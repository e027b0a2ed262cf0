// Package logger constructs the structured logger FacileDB's layers share.
//
// It follows the teacher's call convention (zap.SugaredLogger, *-w methods
// with alternating key/value pairs) rather than introducing a second
// logging idiom for the rewrite.
package logger

import (
	"os"

	"go.uber.org/zap"
)

// New builds a *zap.SugaredLogger named after service. Set FACILEDB_ENV=dev
// to get a human-readable development encoder instead of the default
// production JSON encoder.
func New(service string) *zap.SugaredLogger {
	var base *zap.Logger
	var err error

	if os.Getenv("FACILEDB_ENV") == "dev" {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		// Logger construction failing indicates a broken zap core config,
		// not a recoverable runtime condition; fall back to a no-op logger
		// rather than letting every caller handle a nil *SugaredLogger.
		base = zap.NewNop()
	}

	return base.Named(service).Sugar()
}
