// Package logging configures the worker's root structured logger. The
// per-job fields (correlation_id, reply_to, trace_id, worker_id) are
// attached downstream as each piece of context becomes known: the broker
// mints trace_id/correlation_id/reply_to at dispatch
// (internal/broker.Client.dispatch), and the worker pool adds worker_id once
// a worker actually claims the job (internal/workerpool.Pool.Submit).
package logging

import (
	"github.com/sirupsen/logrus"
)

// New builds the root logger with the given level and format, defaulting to
// info/text on an unrecognized value rather than failing startup over a
// logging misconfiguration.
func New(level, format string) *logrus.Logger {
	log := logrus.New()

	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}
