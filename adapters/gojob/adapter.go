package gojob

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-assembly/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	TaskIDEnsureIndexes = core.TaskIDEnsureIndexes
	TaskIDInstallModule = "assembly.module.install"
)

// ToExecutionMessage maps an assembly task to a go-job execution message.
func ToExecutionMessage(msg *core.TaskMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.TaskID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

func FromExecutionMessage(msg *job.ExecutionMessage) *core.TaskMessage {
	if msg == nil {
		return nil
	}
	return &core.TaskMessage{
		TaskID:         strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// EnqueuerAdapter satisfies core.TaskEnqueuer on top of a go-job queue.
type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.TaskMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: task message is required")
	}
	if strings.TrimSpace(msg.TaskID) == "" {
		return fmt.Errorf("gojob: task id is required")
	}
	_, err := a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
	return err
}

type TaskHandler func(ctx context.Context, msg *core.TaskMessage) error

// Runner pulls deliveries from a go-job queue and runs the handler
// registered for the task id. Failed tasks are requeued after RetryDelay;
// unknown task ids go to the dead letter queue.
type Runner struct {
	mu         sync.RWMutex
	dequeuer   queue.Dequeuer
	handlers   map[string]TaskHandler
	logger     core.Logger
	RetryDelay time.Duration
}

func NewRunner(dequeuer queue.Dequeuer, logger core.Logger) *Runner {
	return &Runner{
		dequeuer:   dequeuer,
		handlers:   map[string]TaskHandler{},
		logger:     glog.Ensure(logger),
		RetryDelay: 30 * time.Second,
	}
}

func (r *Runner) Handle(taskID string, handler TaskHandler) error {
	if r == nil {
		return fmt.Errorf("gojob: runner is nil")
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" || handler == nil {
		return fmt.Errorf("gojob: task id and handler are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[taskID]; exists {
		return fmt.Errorf("gojob: handler for %q already registered", taskID)
	}
	r.handlers[taskID] = handler
	return nil
}

func (r *Runner) TaskIDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RunOnce processes a single delivery.
func (r *Runner) RunOnce(ctx context.Context) error {
	if r == nil || r.dequeuer == nil {
		return fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := r.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}
	msg := FromExecutionMessage(delivery.Message())
	if msg == nil {
		return delivery.Nack(ctx, queue.NackOptions{Disposition: queue.NackDispositionDeadLetter, Reason: "empty message"})
	}

	r.mu.RLock()
	handler, ok := r.handlers[msg.TaskID]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("no handler for task", "task_id", msg.TaskID)
		return delivery.Nack(ctx, queue.NackOptions{Disposition: queue.NackDispositionDeadLetter, Reason: "no handler for " + msg.TaskID})
	}

	if err := handler(ctx, msg); err != nil {
		r.logger.Error("task failed", "task_id", msg.TaskID, "error", err)
		if nackErr := delivery.Nack(ctx, queue.NackOptions{
			Disposition: queue.NackDispositionRetry,
			Delay:       r.RetryDelay,
			Reason:      err.Error(),
		}); nackErr != nil {
			return nackErr
		}
		return err
	}
	return delivery.Ack(ctx)
}

// EnsureIndexesHandler runs App.InitIndexes for EnsureIndexesTask messages.
func EnsureIndexesHandler(app *core.App) TaskHandler {
	return func(ctx context.Context, msg *core.TaskMessage) error {
		if app == nil {
			return fmt.Errorf("gojob: app is required")
		}
		ignore, _ := msg.Parameters["ignore_duplicate_keys"].(bool)
		return app.InitIndexes(ctx, ignore)
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var _ core.TaskEnqueuer = (*EnqueuerAdapter)(nil)
