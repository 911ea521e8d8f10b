package logging

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger to write to out at the named
// level. An unknown level leaves the logger at info and returns an error.
func Setup(level string, out io.Writer) error {
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.SetLevel(logrus.InfoLevel)
		return errors.Wrapf(err, "log level %q", level)
	}
	logrus.SetLevel(lvl)
	return nil
}
