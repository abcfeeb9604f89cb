// internal/pkg/logger/logger.go
package logger

import (
	"io"
	"time"

	"github.com/neonarte/neon-backend/internal/config"
	"github.com/sirupsen/logrus"
)

// Audit channels, one per subsystem.
const (
	ChannelAuth       = "auth"
	ChannelOrders     = "orders"
	ChannelProduction = "production"
	ChannelCart       = "cart"
	ChannelQuotes     = "quotes"
	ChannelHTTP       = "http"
	ChannelWorker     = "worker"
)

// Setup configures the standard logrus logger from config and returns it.
func Setup(cfg *config.Config) *logrus.Logger {
	log := logrus.StandardLogger()
	Configure(log, cfg.Logging.Format, cfg.Logging.Level)
	return log
}

// Configure applies format and level to the given logger.
func Configure(log *logrus.Logger, format, level string) {
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
}

// Channel returns an entry tagged with the given audit channel.
func Channel(name string) *logrus.Entry {
	return logrus.WithField("channel", name)
}

// Silence discards standard logger output. Used by tests.
func Silence() {
	logrus.SetOutput(io.Discard)
}
