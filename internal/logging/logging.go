// Package logging builds the logrus logger shared by the server.
package logging

import (
	"fmt"
	"io"
	"net"
	"os"

	logrustash "github.com/bshuster-repo/logrus-logstash-hook"
	"github.com/sirupsen/logrus"
)

// Options controls logger construction.
type Options struct {
	Level string
	// LogstashAddr is a host:port of a logstash TCP input. Empty disables shipping.
	LogstashAddr string
	Output       io.Writer
}

// New returns a JSON logrus logger. When a logstash address is configured the
// entries are also shipped there.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	logger.SetOutput(out)

	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = l
	}
	logger.SetLevel(level)

	if opts.LogstashAddr != "" {
		conn, err := net.Dial("tcp", opts.LogstashAddr)
		if err != nil {
			return nil, fmt.Errorf("dial logstash %s: %w", opts.LogstashAddr, err)
		}
		hook := logrustash.New(conn, logrustash.DefaultFormatter(logrus.Fields{"type": "warbler"}))
		logger.Hooks.Add(hook)
	}

	return logger, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
