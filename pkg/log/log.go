package log

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

func New(version string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"version": version,
		"program": "gharisk",
	})
}

// SetLevel sets the log level of the logger of logE.
// An empty level keeps the current level.
func SetLevel(level string, logE *logrus.Entry) error {
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse the log level %q: %w", level, err)
	}
	logE.Logger.SetLevel(lvl)
	return nil
}
