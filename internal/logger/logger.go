// Package logger provides verbose logging for cardsync.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow an import run.
//
// A log file can be attached with SetFile. File output is written for every
// message regardless of the verbose flag and is rotated by size, which is
// what the long-running daemon relies on.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// File rotation defaults for SetFile.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	file    io.WriteCloser
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetFile attaches a size-rotated log file. An empty path detaches and
// closes the current file.
func SetFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		if err := file.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
		file = nil
	}
	if path == "" {
		return nil
	}

	file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
	}
	return nil
}

// write emits a line to stderr (when verbose or forced) and to the log file.
// Caller must hold at least the read lock.
func write(force bool, line string) {
	if verbose || force {
		fmt.Fprint(output, line)
	}
	if file != nil {
		fmt.Fprint(file, line)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write(false, fmt.Sprintf("[DEBUG] "+format+"\n", args...))
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	write(false, fmt.Sprintf("\n=== %s ===\n", name))
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write(false, fmt.Sprintf("[INFO] "+format+"\n", args...))
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write(false, fmt.Sprintf("[WARN] "+format+"\n", args...))
}

// Error prints an error message. Errors are always printed.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write(true, fmt.Sprintf("[ERROR] "+format+"\n", args...))
}
