package util

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LOG_BUFFER_SIZE = 1000

var (
	ErrLogNotInitialized = errors.New("log object is not initialized yet")
	ErrUnknownLogLevel   = errors.New("unknown log level")
	// Empty means log to stderr.
	LOG_FOLDER_NAME_WITH_PATH = ""
	globalLogLevel            = LOG_LEVEL_INFO
)

const (
	LOG_LEVEL_ERROR = iota + 1
	LOG_LEVEL_WARN
	LOG_LEVEL_INFO
	LOG_LEVEL_DEBUG
)

// MetricsLogger hands log lines to a single writer goroutine through a
// buffered channel so that the sampler and request handlers never wait on
// file I/O.
type MetricsLogger struct {
	mu                sync.RWMutex
	logBuffer         chan LeveledLogger
	handle            *os.File
	wg                *sync.WaitGroup
	loggerInitialized bool
	zapLogger         *zap.Logger
}

type LeveledLogger struct {
	level  int
	logMsg string
}

func (m *MetricsLogger) Init(logFileName string, rewrite bool) error {

	var err error

	m.mu.Lock()
	defer m.mu.Unlock()

	m.wg = new(sync.WaitGroup)
	m.logBuffer = make(chan LeveledLogger, LOG_BUFFER_SIZE)

	m.handle = nil
	if LOG_FOLDER_NAME_WITH_PATH != "" {
		fileWithRelPath := LOG_FOLDER_NAME_WITH_PATH + string(os.PathSeparator) + logFileName

		flags := os.O_RDWR | os.O_CREATE | os.O_APPEND
		if rewrite {
			flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
		}
		m.handle, err = os.OpenFile(fileWithRelPath, flags, 0666)
		if err != nil {
			return err
		}
	}

	m.zapLoggerInit()

	m.wg.Add(1)
	go m.logWritter()

	m.loggerInitialized = true
	return nil
}

func (m *MetricsLogger) zapLoggerInit() {

	var writer zapcore.WriteSyncer
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder

	config.EncodeLevel = zapcore.CapitalLevelEncoder //To Print level in Uppercase.
	fileEncoder := zapcore.NewConsoleEncoder(config) //To Print Lines in non json format.

	if m.handle != nil {
		writer = zapcore.AddSync(m.handle)
	} else {
		writer = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, writer, GlobalLogLevelSetter()),
	)
	m.zapLogger = zap.New(core)
}

func GlobalLogLevelSetter() zapcore.Level {
	switch globalLogLevel {
	case LOG_LEVEL_ERROR:
		return zapcore.ErrorLevel
	case LOG_LEVEL_WARN:
		return zapcore.WarnLevel
	case LOG_LEVEL_DEBUG:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func (m *MetricsLogger) logWritter() {
	for logdata := range m.logBuffer {
		switch logdata.level {
		case LOG_LEVEL_ERROR:
			m.zapLogger.Error(logdata.logMsg)
		case LOG_LEVEL_WARN:
			m.zapLogger.Warn(logdata.logMsg)
		case LOG_LEVEL_INFO:
			m.zapLogger.Info(logdata.logMsg)
		case LOG_LEVEL_DEBUG:
			m.zapLogger.Debug(logdata.logMsg)
		}
	}
	m.zapLogger.Sync()
	m.wg.Done()
}

// LogEvent accepts either a single message (logged at info) or a level
// followed by the values making up the message.
func (m *MetricsLogger) LogEvent(v ...interface{}) error {
	level, msg := formatEvent(v)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.loggerInitialized {
		return ErrLogNotInitialized
	}
	m.logBuffer <- LeveledLogger{level, msg}
	return nil
}

func formatEvent(v []interface{}) (int, string) {
	switch {
	case len(v) == 0:
		return LOG_LEVEL_INFO, ""
	case len(v) == 1:
		return LOG_LEVEL_INFO, fmt.Sprint(v[0])
	}

	level, ok := v[0].(int)
	if ok && level >= LOG_LEVEL_ERROR && level <= LOG_LEVEL_DEBUG {
		v = v[1:]
	} else {
		level = LOG_LEVEL_INFO
	}
	msg := fmt.Sprintf("%v", v)
	return level, msg[1 : len(msg)-1]
}

// DeInit flushes pending lines and closes the log file. Later LogEvent calls
// return ErrLogNotInitialized.
func (m *MetricsLogger) DeInit() {

	m.mu.Lock()
	if !m.loggerInitialized {
		m.mu.Unlock()
		return
	}
	m.loggerInitialized = false
	close(m.logBuffer)
	m.mu.Unlock()

	m.wg.Wait()

	if m.handle != nil {
		m.handle.Close()
	}
}

func SetCommonLoggerAttributes(GlobalLogLevel int) {
	globalLogLevel = GlobalLogLevel
}

func SetLoggerPath(logPath string) {
	LOG_FOLDER_NAME_WITH_PATH = logPath
}

// ParseLogLevel maps "error", "warn", "info" and "debug" to the LOG_LEVEL
// constants.
func ParseLogLevel(level string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return LOG_LEVEL_ERROR, nil
	case "warn", "warning":
		return LOG_LEVEL_WARN, nil
	case "", "info":
		return LOG_LEVEL_INFO, nil
	case "debug":
		return LOG_LEVEL_DEBUG, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLogLevel, level)
}

func CheckAndCreateLogFolder(FolderNameWithPath string) {
	_, err := os.Stat(FolderNameWithPath)

	if os.IsNotExist(err) {
		err := os.MkdirAll(FolderNameWithPath, 0755)
		if err != nil {
			fmt.Println("Failed to create the log folder and Mkdir err :: ", err)
		}
	}
}
