// Package logging builds the process logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger for env. Local and test environments get text output;
// everything else logs JSON. An unparsable level falls back to info.
func New(env, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	switch env {
	case "local", "test", "ci", "sandbox":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}
