package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"shopify-price-manager/internal/config"
)

// LoggerService is the logging surface handed to every component.
type LoggerService interface {
	Log(value string, fields ...zap.Field)
	LogWarning(value string, fields ...zap.Field)
	LogError(value string, err error, fields ...zap.Field)
	LogSuccess(value string, fields ...zap.Field)
	With(fields ...zap.Field) LoggerService
}

type zapLogger struct {
	logger   *zap.Logger
	notifier Notifier
}

// NewLogger builds the process logger. ERROR and SUCCESS entries are additionally
// forwarded to Telegram when bot credentials are configured.
func NewLogger(cfg *config.Config) (LoggerService, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.Environment, "production") {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	telegram := NewTelegramNotifier(cfg.TelegramBot, nil)
	if telegram == nil {
		logger.Warn("telegram credentials missing, notifications disabled")
		return New(logger, nil), nil
	}
	return New(logger, telegram), nil
}

// New wraps an existing zap logger. notifier may be nil.
func New(logger *zap.Logger, notifier Notifier) LoggerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapLogger{logger: logger, notifier: notifier}
}

// NewNop returns a logger that discards everything.
func NewNop() LoggerService {
	return New(zap.NewNop(), nil)
}

// OrNop guards constructors that accept an optional logger.
func OrNop(logger LoggerService) LoggerService {
	if logger == nil {
		return NewNop()
	}
	return logger
}

func (l *zapLogger) Log(value string, fields ...zap.Field) {
	l.logger.Info(value, fields...)
}

func (l *zapLogger) LogWarning(value string, fields ...zap.Field) {
	l.logger.Warn(value, fields...)
}

func (l *zapLogger) LogError(value string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.logger.Error(value, fields...)
	l.notify(iconError, "ERROR", value, err)
}

func (l *zapLogger) LogSuccess(value string, fields ...zap.Field) {
	l.logger.Info(value, append(fields, zap.Bool("success", true))...)
	l.notify(iconSuccess, "SUCCESS", value, nil)
}

func (l *zapLogger) With(fields ...zap.Field) LoggerService {
	return &zapLogger{logger: l.logger.With(fields...), notifier: l.notifier}
}

func (l *zapLogger) notify(icon, level, value string, err error) {
	if l.notifier == nil {
		return
	}
	if err != nil {
		value = fmt.Sprintf("%s: %v", value, err)
	}
	if sendErr := l.notifier.Notify(formatMessage(icon, level, value)); sendErr != nil {
		l.logger.Warn("telegram notification failed", zap.Error(sendErr))
	}
}
