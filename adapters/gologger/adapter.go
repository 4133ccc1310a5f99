package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// TaskLoggerName is the logger name handed to task workers.
const TaskLoggerName = "assembly.tasks"

// ToJobProvider exposes a glog provider through the go-job provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ForTasks resolves the assembly logger the same way assembly does
// (provider, then logger, then nop) and returns it in go-job form.
func ForTasks(provider glog.LoggerProvider, logger glog.Logger) (job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := glog.Resolve(TaskLoggerName, provider, logger)
	return ToJobProvider(resolvedProvider), ToJobLogger(glog.Ensure(resolvedLogger))
}
