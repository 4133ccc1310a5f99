package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

var logLevels = map[string]int{
	"trace": 0,
	"debug": 1,
	"info":  2,
	"warn":  3,
	"error": 4,
	"fatal": 5,
}

// writerLogger prints "level msg key=value ..." lines at or above min.
type writerLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	min    int
	fields map[string]any
}

func newWriterLogger(out io.Writer, level string) (*writerLogger, error) {
	threshold, ok := logLevels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return &writerLogger{mu: &sync.Mutex{}, out: out, min: threshold, fields: map[string]any{}}, nil
}

func (l *writerLogger) Trace(msg string, args ...any) { l.write("trace", msg, args...) }
func (l *writerLogger) Debug(msg string, args ...any) { l.write("debug", msg, args...) }
func (l *writerLogger) Info(msg string, args ...any)  { l.write("info", msg, args...) }
func (l *writerLogger) Warn(msg string, args ...any)  { l.write("warn", msg, args...) }
func (l *writerLogger) Error(msg string, args ...any) { l.write("error", msg, args...) }
func (l *writerLogger) Fatal(msg string, args ...any) { l.write("fatal", msg, args...) }

func (l *writerLogger) WithContext(context.Context) glog.Logger {
	return l
}

func (l *writerLogger) WithFields(fields map[string]any) glog.Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for key, value := range l.fields {
		merged[key] = value
	}
	for key, value := range fields {
		merged[key] = value
	}
	return &writerLogger{mu: l.mu, out: l.out, min: l.min, fields: merged}
}

func (l *writerLogger) write(level string, msg string, args ...any) {
	if logLevels[level] < l.min {
		return
	}
	fields := make(map[string]any, len(l.fields)+len(args)/2)
	for key, value := range l.fields {
		fields[key] = value
	}
	for index := 0; index+1 < len(args); index += 2 {
		if key, ok := args[index].(string); ok {
			fields[key] = args[index+1]
		}
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var line strings.Builder
	line.WriteString(level)
	line.WriteString(" ")
	line.WriteString(msg)
	for _, key := range keys {
		fmt.Fprintf(&line, " %s=%v", key, fields[key])
	}
	line.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, line.String())
}

var _ glog.FieldsLogger = (*writerLogger)(nil)
