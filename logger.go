package sharding

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel controls which messages a Logger emits.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelTrace:
		return "trace"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// DefaultLogLevel is the level of the active configuration.
var DefaultLogLevel = LogLevelInfo

// Logger defines the interface for logging in the sharding package.
// This allows users to plug in their own logging implementations.
type Logger interface {
	// Error logs error messages that should always be displayed
	Error(format string, args ...interface{})

	// Info logs informational messages about normal operations
	Info(format string, args ...interface{})

	// Debug logs detailed information for debugging purposes
	Debug(format string, args ...interface{})

	// Trace logs highly detailed tracing information
	Trace(format string, args ...interface{})

	SetLevel(level LogLevel)
	GetLevel() LogLevel
}

// StandardLogger implements the Logger interface using Go's standard log package
type StandardLogger struct {
	mutex sync.RWMutex
	level LogLevel
	log   *log.Logger
}

// NewStandardLogger creates a new StandardLogger with the specified level and output
func NewStandardLogger(level LogLevel, out io.Writer, showTime bool) *StandardLogger {
	flags := 0
	if showTime {
		flags = log.LstdFlags
	}

	return &StandardLogger{
		level: level,
		log:   log.New(out, "", flags),
	}
}

func (l *StandardLogger) Error(format string, args ...interface{}) {
	l.log.Printf("[ERROR] "+format, args...)
}

func (l *StandardLogger) Info(format string, args ...interface{}) {
	l.logf(LogLevelInfo, "[INFO] ", format, args...)
}

func (l *StandardLogger) Debug(format string, args ...interface{}) {
	l.logf(LogLevelDebug, "[DEBUG] ", format, args...)
}

func (l *StandardLogger) Trace(format string, args ...interface{}) {
	l.logf(LogLevelTrace, "[TRACE] ", format, args...)
}

func (l *StandardLogger) logf(level LogLevel, prefix, format string, args ...interface{}) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if l.level >= level {
		l.log.Printf(prefix+format, args...)
	}
}

func (l *StandardLogger) SetLevel(level LogLevel) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.level = level
}

func (l *StandardLogger) GetLevel() LogLevel {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.level
}

// MockLogrusProvider defines the interface for a mock logrus provider for testing
type MockLogrusProvider interface {
	Error(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Trace(msg string, args ...interface{})
	SetLevel(level int)
	GetLevel() int
}

// LogrumLogger implements the Logger interface using logrus. Every entry
// carries the "app" field plus any fields attached with WithFields.
type LogrumLogger struct {
	mutex        sync.RWMutex
	level        LogLevel
	logrus       *logrus.Logger
	appName      string
	fields       logrus.Fields
	mockProvider MockLogrusProvider // Used for testing
}

// NewLogrumLogger creates a LogrumLogger writing text entries to stdout at
// Info level.
func NewLogrumLogger() *LogrumLogger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	return &LogrumLogger{
		level:   LogLevelInfo,
		logrus:  logger,
		appName: "sqlshard",
	}
}

// NewLogrumLoggerWithProvider creates a LogrumLogger with a custom logrus provider
// This is primarily used for testing with a mock implementation.
func NewLogrumLoggerWithProvider(provider MockLogrusProvider) *LogrumLogger {
	return &LogrumLogger{
		level:        LogLevel(provider.GetLevel()),
		mockProvider: provider,
	}
}

// WithFields returns a logger that adds fields to every entry. The level is
// copied, not shared.
func (l *LogrumLogger) WithFields(fields map[string]interface{}) *LogrumLogger {
	merged := logrus.Fields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &LogrumLogger{
		level:        l.GetLevel(),
		logrus:       l.logrus,
		appName:      l.appName,
		fields:       merged,
		mockProvider: l.mockProvider,
	}
}

func (l *LogrumLogger) entry() *logrus.Entry {
	fields := logrus.Fields{}
	for k, v := range l.fields {
		fields[k] = v
	}
	if l.appName != "" {
		fields["app"] = l.appName
	}
	return l.logrus.WithFields(fields)
}

// Error logs are always output regardless of the log level.
func (l *LogrumLogger) Error(format string, args ...interface{}) {
	if l.mockProvider != nil {
		l.mockProvider.Error(format, args...)
		return
	}
	l.entry().Error(fmt.Sprintf(format, args...))
}

func (l *LogrumLogger) Info(format string, args ...interface{}) {
	if !l.enabled(LogLevelInfo) {
		return
	}
	if l.mockProvider != nil {
		l.mockProvider.Info(format, args...)
		return
	}
	l.entry().Info(fmt.Sprintf(format, args...))
}

func (l *LogrumLogger) Debug(format string, args ...interface{}) {
	if !l.enabled(LogLevelDebug) {
		return
	}
	if l.mockProvider != nil {
		l.mockProvider.Debug(format, args...)
		return
	}
	l.entry().Debug(fmt.Sprintf(format, args...))
}

func (l *LogrumLogger) Trace(format string, args ...interface{}) {
	if !l.enabled(LogLevelTrace) {
		return
	}
	if l.mockProvider != nil {
		l.mockProvider.Trace(format, args...)
		return
	}
	l.entry().Trace(fmt.Sprintf(format, args...))
}

func (l *LogrumLogger) enabled(level LogLevel) bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.level >= level
}

// SetLevel updates both the internal level and the logrus logger's level.
func (l *LogrumLogger) SetLevel(level LogLevel) {
	l.mutex.Lock()
	l.level = level
	l.mutex.Unlock()

	if l.mockProvider != nil {
		l.mockProvider.SetLevel(MapToLogrumLevel(level))
		return
	}
	l.logrus.SetLevel(logrusLevel(level))
}

func (l *LogrumLogger) GetLevel() LogLevel {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if l.mockProvider != nil {
		return LogLevel(l.mockProvider.GetLevel())
	}

	return l.level
}

// MapToLogrumLevel maps a sharding LogLevel to a logrus level value for testing
func MapToLogrumLevel(level LogLevel) int {
	switch level {
	case LogLevelError:
		return 0
	case LogLevelInfo:
		return 1
	case LogLevelDebug:
		return 2
	case LogLevelTrace:
		return 3
	default:
		return 1
	}
}

func logrusLevel(level LogLevel) logrus.Level {
	switch level {
	case LogLevelError:
		return logrus.ErrorLevel
	case LogLevelDebug:
		return logrus.DebugLevel
	case LogLevelTrace:
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

// global logger instance
var (
	defaultLogger Logger = NewStandardLogger(LogLevelInfo, os.Stdout, true)
	loggerMutex   sync.RWMutex
)

// GetLogger returns the current global logger
func GetLogger() Logger {
	loggerMutex.RLock()
	defer loggerMutex.RUnlock()

	return defaultLogger
}

// SetLogger sets a custom logger as the global logger
func SetLogger(logger Logger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	defaultLogger = logger
}

func logOutput(output string) io.Writer {
	switch output {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", output, err)
		return os.Stderr
	}
	return file
}

func configureStandardLogger(config LogConfig) {
	SetLogger(NewStandardLogger(config.Level, logOutput(config.Output), config.ShowTime))
}

func configureLogrumLogger(config LogConfig) {
	logrusLogger := logrus.New()
	logrusLogger.SetOutput(logOutput(config.Output))
	logrusLogger.SetLevel(logrusLevel(config.Level))

	formatter := &logrus.TextFormatter{
		DisableTimestamp: !config.ShowTime,
		FullTimestamp:    config.ShowTime,
	}
	if config.LogrumOptions.TimestampFormat != "" {
		formatter.TimestampFormat = config.LogrumOptions.TimestampFormat
	}
	logrusLogger.SetFormatter(formatter)

	if config.LogrumOptions.IncludeCaller {
		logrusLogger.SetReportCaller(true)
	}

	SetLogger(&LogrumLogger{
		level:   config.Level,
		logrus:  logrusLogger,
		appName: config.LogrumOptions.AppName,
	})
}
