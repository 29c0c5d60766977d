package lib

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogDirectory = "logs"
	LogFileName  = "log"
)

/*
	Leveled, colourised logging shared by every participant of the simulation.
	Each actor gets its own prefixed view of one underlying writer, which is stdout and optionally an
	auto-rotating log file in the data directory.
*/

func init() {
	color.NoColor = false
}

// LoggerI defines the interface for various logging levels and formatted output
type LoggerI interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
	Print(msg string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	Printf(format string, args ...interface{})
}

const (
	DebugLevel int32 = -4
	InfoLevel  int32 = 0
	WarnLevel  int32 = 4
	ErrorLevel int32 = 8

	Reset = iota
	RED
	GREEN
	YELLOW
	BLUE
	GRAY
	CYAN
)

var (
	_ LoggerI = &Logger{}
)

// LoggerConfig holds configuration settings for the logger, including logging level and output writer
type LoggerConfig struct {
	Level int32 `json:"level"`
	// Out overrides the destination; when nil the logger writes to stdout (and a rotating file if MaxSizeMB > 0)
	Out io.Writer
	// MaxSizeMB is the rotation threshold of the log file
	MaxSizeMB int
}

// Logger is the concrete implementation of LoggerI
type Logger struct {
	config LoggerConfig
	prefix string
	mux    *sync.Mutex
}

// WithPrefix() returns a view of the logger that tags every line with the participant name
func (l *Logger) WithPrefix(name string) *Logger {
	return &Logger{config: l.config, prefix: name, mux: l.mux}
}

func (l *Logger) Debug(msg string) {
	if l.config.Level <= DebugLevel {
		l.write(colorString(BLUE, "DEBUG: "+msg))
	}
}

func (l *Logger) Info(msg string) {
	if l.config.Level <= InfoLevel {
		l.write(colorString(GREEN, "INFO: "+msg))
	}
}

func (l *Logger) Warn(msg string) {
	if l.config.Level <= WarnLevel {
		l.write(colorString(YELLOW, "WARN: "+msg))
	}
}

func (l *Logger) Error(msg string) {
	if l.config.Level <= ErrorLevel {
		l.write(colorString(RED, "ERROR: "+msg))
	}
}

// Print() logs a message without any level or color
func (l *Logger) Print(msg string) { l.write(msg) }

// Fatal() logs an error message and terminates the program
func (l *Logger) Fatal(msg string) {
	l.write(colorString(RED, "FATAL: "+msg))
	os.Exit(1)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.Debug(fmt.Sprintf(format, args...)) }

func (l *Logger) Infof(format string, args ...interface{}) { l.Info(fmt.Sprintf(format, args...)) }

func (l *Logger) Warnf(format string, args ...interface{}) { l.Warn(fmt.Sprintf(format, args...)) }

func (l *Logger) Errorf(format string, args ...interface{}) { l.Error(fmt.Sprintf(format, args...)) }

func (l *Logger) Fatalf(format string, args ...interface{}) { l.Fatal(fmt.Sprintf(format, args...)) }

func (l *Logger) Printf(format string, args ...interface{}) { l.write(fmt.Sprintf(format, args...)) }

// write() outputs the log line with a timestamp (and prefix) to the configured writer
func (l *Logger) write(msg string) {
	timeColored := colorString(GRAY, time.Now().Format(time.StampMilli))
	line := fmt.Sprintf("%s %s\n", timeColored, msg)
	if l.prefix != "" {
		line = fmt.Sprintf("%s %s %s\n", timeColored, colorString(CYAN, "["+l.prefix+"]"), msg)
	}
	// actors log concurrently through the same writer
	l.mux.Lock()
	defer l.mux.Unlock()
	if _, err := l.config.Out.Write([]byte(line)); err != nil {
		fmt.Println(newLogError(err))
	}
}

// NewLogger() creates a new Logger; without an explicit writer it logs to stdout and, when a data
// directory is given, to an auto-rotating file inside it
func NewLogger(config LoggerConfig, dataDirPath ...string) *Logger {
	if config.Out == nil {
		config.Out = os.Stdout
		if len(dataDirPath) != 0 && dataDirPath[0] != "" {
			logDir := filepath.Join(dataDirPath[0], LogDirectory)
			if _, err := os.Stat(logDir); errors.Is(err, os.ErrNotExist) {
				if err = os.MkdirAll(logDir, os.ModePerm); err != nil {
					panic(err)
				}
			}
			maxSize := config.MaxSizeMB
			if maxSize <= 0 {
				maxSize = 1
			}
			config.Out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
				Filename:   filepath.Join(logDir, LogFileName),
				MaxSize:    maxSize, // megabytes
				MaxBackups: 10,
				MaxAge:     14, // days
				Compress:   true,
			})
		}
	}
	return &Logger{config: config, mux: &sync.Mutex{}}
}

// NewDefaultLogger() creates a Logger with default settings, logging at the Debug level to stdout
func NewDefaultLogger() *Logger {
	return NewLogger(LoggerConfig{Level: DebugLevel, Out: os.Stdout})
}

// NewNullLogger() creates a Logger that discards all log output
func NewNullLogger() *Logger {
	return NewLogger(LoggerConfig{Level: DebugLevel, Out: io.Discard})
}

func newLogError(err error) ErrorI {
	return NewError(NoCode, MainModule, fmt.Sprintf("logger write failed with err: %s", err.Error()))
}

// colorString() returns a string with color applied, preserving line breaks
func colorString(c int, msg string) string {
	arr := strings.Split(msg, "\n")
	for i, part := range arr {
		arr[i] = cString(c, part)
	}
	return strings.Join(arr, "\n")
}

// cString() returns a string with a specific color applied
func cString(c int, msg string) string {
	switch c {
	case BLUE:
		return color.BlueString(msg)
	case RED:
		return color.RedString(msg)
	case YELLOW:
		return color.YellowString(msg)
	case GREEN:
		return color.GreenString(msg)
	case GRAY:
		return color.HiBlackString(msg)
	case CYAN:
		return color.CyanString(msg)
	default:
		return color.WhiteString(msg)
	}
}
