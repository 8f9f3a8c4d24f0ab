// Package hooklog appends run diagnostics to the hook's log file.
//
// The file is opened once per run and shared by nothing else in the process.
// Concurrent pushes append from separate processes; interleaved entries are
// tolerated rather than locked out.
package hooklog

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Log is an append-only run log.
type Log struct {
	f *os.File
}

// Open opens path for appending, creating the file if needed.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return &Log{f: f}, nil
}

// DumpInput appends a timestamp line followed by the verbatim hook input.
// Only called when debug is enabled.
func (l *Log) DumpInput(input string) {
	l.timestamp()
	fmt.Fprint(l.f, input)
	if input != "" && !strings.HasSuffix(input, "\n") {
		fmt.Fprintln(l.f)
	}
}

// Failure appends a timestamp line followed by diagnostic detail. Written on
// any run failure regardless of the debug setting.
func (l *Log) Failure(detail string) {
	l.timestamp()
	fmt.Fprintln(l.f, detail)
}

// Close releases the log file.
func (l *Log) Close() error {
	return l.f.Close()
}

func (l *Log) timestamp() {
	fmt.Fprintln(l.f, time.Now().Format("2006-01-02 15:04:05"))
}
