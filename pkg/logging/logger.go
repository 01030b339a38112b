package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// InitLogger sets up the process logger. Debug mode logs human-readable
// text at debug level; otherwise JSON at info level. If logFile is
// non-empty, output is teed to that file as well as stdout.
func InitLogger(debug bool, logFile string) {
	Log = logrus.New()
	Log.Out = os.Stdout

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			Log.Warnf("⚠️ Could not open log file %s: %v", logFile, err)
		} else {
			Log.Out = io.MultiWriter(os.Stdout, f)
		}
	}

	if debug {
		Log.SetLevel(logrus.DebugLevel)
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		Log.SetLevel(logrus.InfoLevel)
		Log.SetFormatter(&logrus.JSONFormatter{})
	}
}
