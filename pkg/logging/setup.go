package logging

import (
	"github.com/sirupsen/logrus"
)

// New builds the base application logger. Invalid level strings fall
// back to info with a warning rather than failing startup.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level '%s', defaulting to 'info'", level)
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}
