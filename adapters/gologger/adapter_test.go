package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func TestForTasks_PrefersProviderLogger(t *testing.T) {
	direct := &capturingLogger{id: "logger"}
	fromProvider := &capturingLogger{id: "provider"}
	provider := &capturingProvider{logger: fromProvider}

	jobProvider, jobLogger := ForTasks(provider, direct)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job provider and logger bridges")
	}

	jobLogger.Info("task queued", "task", "assembly.indexes.ensure")
	if fromProvider.lastInfo.msg != "task queued" {
		t.Fatalf("expected provider logger to receive message, got %q", fromProvider.lastInfo.msg)
	}
	if direct.lastInfo.msg != "" {
		t.Fatalf("expected direct logger to be bypassed, got %q", direct.lastInfo.msg)
	}
}

func TestForTasks_FallsBackToNop(t *testing.T) {
	jobProvider, jobLogger := ForTasks(nil, nil)
	if jobLogger == nil {
		t.Fatalf("expected nop logger fallback")
	}
	jobLogger.Info("ignored")
	if jobProvider == nil {
		t.Fatalf("expected provider wrapper around nop logger")
	}
}

func TestJobProviderBridgesArgs(t *testing.T) {
	captured := &capturingLogger{id: "provider"}
	bridged := ToJobProvider(&capturingProvider{logger: captured}).GetLogger("assembly")
	bridged.Info("hello", "k", "v")

	if captured.lastInfo.msg != "hello" {
		t.Fatalf("expected bridged message, got %q", captured.lastInfo.msg)
	}
	if len(captured.lastInfo.args) != 2 || captured.lastInfo.args[0] != "k" || captured.lastInfo.args[1] != "v" {
		t.Fatalf("expected bridged args, got %#v", captured.lastInfo.args)
	}
	if ToJobProvider(nil) != nil || ToJobLogger(nil) != nil {
		t.Fatalf("expected nil inputs to map to nil")
	}
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	logger *capturingLogger
}

func (p *capturingProvider) GetLogger(string) glog.Logger {
	if p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type infoCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	id       string
	lastInfo infoCall
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{msg: msg, args: append([]any(nil), args...)}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
