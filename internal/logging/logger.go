package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации, при ошибке возвращает fallback
func ParseLevel(s string, fallback LogLevel) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return fallback
	}
}

// Logger пишет сообщения компонента в консоль и в файл
type Logger struct {
	component       string
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
	mu              sync.Mutex
}

var (
	// Каталог для файлов логов
	logDir = "logs"

	defaultLogger = &Logger{
		component:       "default",
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		minConsoleLevel: INFO,
		minFileLevel:    DEBUG,
	}
	defaultInitialized bool
)

// SetLogDir задаёт каталог для файлов логов. Вызывать до InitDefaultLogger.
func SetLogDir(dir string) {
	if dir != "" {
		logDir = dir
	}
}

// NewLogger создаёт логгер компонента с файлом logs/<component>_<timestamp>.log
func NewLogger(component string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(logDir, fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	return &Logger{
		component:       component,
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		fileLogger:      log.New(file, "", log.LstdFlags),
		file:            file,
		minConsoleLevel: INFO,
		minFileLevel:    DEBUG,
	}, nil
}

// Close закрывает файл логов
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

// SetLevels устанавливает минимальные уровни для консоли и файла
func (l *Logger) SetLevels(console, file LogLevel) {
	l.mu.Lock()
	l.minConsoleLevel = console
	l.minFileLevel = file
	l.mu.Unlock()
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// log внутренняя функция для логирования
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minConsoleLevel && (l.fileLogger == nil || level < l.minFileLevel) {
		return
	}

	message := fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, fmt.Sprintf(format, args...))

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Println(message)
	}
	if l.consoleLogger != nil && level >= l.minConsoleLevel {
		l.consoleLogger.Println(message)
	}
}

// InitDefaultLogger инициализирует глобальный логгер с файлом для компонента
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}
	defaultLogger = logger
	defaultInitialized = true
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	if defaultInitialized {
		_ = defaultLogger.Close()
	}
}

// Default глобальный логгер
func Default() *Logger { return defaultLogger }

// SetDefaultLevels устанавливает уровни глобального логгера
func SetDefaultLevels(console, file LogLevel) {
	defaultLogger.SetLevels(console, file)
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { defaultLogger.log(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { defaultLogger.log(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { defaultLogger.log(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { defaultLogger.log(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { defaultLogger.log(ERROR, format, args...) }
