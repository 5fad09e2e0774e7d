package logging

import (
	"github.com/sirupsen/logrus"
)

// Log is the base log entry for the service. Packages derive their own entries from it.
var Log = logrus.WithFields(logrus.Fields{
	"service": "notification-gateway",
	"art-id":  "notification-gateway",
	"group":   "org.cyverse",
})

// SetupLogging configures the log level and output format.
func SetupLogging(debug bool) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
