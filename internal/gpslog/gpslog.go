// Package gpslog wraps logrus with the field conventions used across the
// simulator (run_id, prn, slot). Components take a
// logrus.FieldLogger at construction rather than reaching for a package
// global, following the injection pattern used for NTRIP server logging
// in the rest of the example corpus.
package gpslog

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// New builds a logrus.FieldLogger stamped with a fresh run ID, writing
// to w (os.Stderr in production, io.Discard in tests that don't assert
// on log output).
func New(w io.Writer, verbose bool) logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l.WithField("run_id", uuid.New().String())
}

// Discard returns a logger that drops everything, for tests that do not
// assert on log output.
func Discard() logrus.FieldLogger {
	return New(io.Discard, false)
}

// Default returns a stderr logger suitable for cmd/gpssim's main.
func Default(verbose bool) logrus.FieldLogger {
	return New(os.Stderr, verbose)
}
