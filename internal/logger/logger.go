package logger

import (
	"fmt"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the structured logger.
type Options struct {
	Level       string
	Environment string
	ServiceName string
	SentryDSN   string
	Development bool
}

// New builds a structured zap.Logger. When a Sentry DSN is configured,
// error-level entries are forwarded to Sentry through a zapsentry core.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}

	level := opts.Level
	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	if opts.SentryDSN != "" {
		client, err := sentry.NewClient(sentry.ClientOptions{
			Dsn:         opts.SentryDSN,
			Environment: opts.Environment,
			ServerName:  opts.ServiceName,
		})
		if err != nil {
			return nil, err
		}
		core, err := zapsentry.NewCore(zapsentry.Configuration{
			Level:             zapcore.ErrorLevel,
			EnableBreadcrumbs: true,
			BreadcrumbLevel:   zapcore.InfoLevel,
			Tags:              map[string]string{"service": opts.ServiceName},
		}, zapsentry.NewSentryClientFromClient(client))
		if err != nil {
			return nil, err
		}
		log = zapsentry.AttachCoreToLogger(core, log)
	}

	zap.ReplaceGlobals(log)
	return log, nil
}
