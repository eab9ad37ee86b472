package launcher

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

// setupLogging installs the root handler of the consensus loggers.
func setupLogging(cfg LoggingConfig) error {
	var format log.Format
	switch cfg.Format {
	case "", "text":
		format = log.TerminalFormat(cfg.Color)
	case "json":
		format = log.JSONFormat()
	default:
		return fmt.Errorf("unknown log format %q (valid: text, json)", cfg.Format)
	}
	if cfg.Verbosity < int(log.LvlCrit) || cfg.Verbosity > int(log.LvlTrace) {
		return fmt.Errorf("log verbosity %d out of range", cfg.Verbosity)
	}
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(cfg.Verbosity), log.StreamHandler(os.Stderr, format)))
	return nil
}

// SentryAlerter reports consensus violations through logrus, and to sentry
// when a DSN is configured.
type SentryAlerter struct {
	logger *logrus.Logger
}

func NewSentryAlerter(cfg AlertConfig) (*SentryAlerter, error) {
	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if cfg.SentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.SentryDSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, err
		}
		logger.Hooks.Add(hook)
	}
	return &SentryAlerter{logger: logger}, nil
}

func (a *SentryAlerter) Alert(msg string, fields map[string]interface{}) {
	a.logger.WithFields(logrus.Fields(fields)).Error(msg)
}
