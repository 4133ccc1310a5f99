package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// MediaObject is a binary object kept by a MediaStorage backend.
type MediaObject struct {
	ID          string
	Resource    string
	Filename    string
	ContentType string
	Data        []byte
	Metadata    map[string]any
	CreatedAt   time.Time
}

// MediaStorage is the capability every media storage backend must provide.
type MediaStorage interface {
	Put(ctx context.Context, object MediaObject) (string, error)
	Get(ctx context.Context, id string, resource string) (MediaObject, error)
	Delete(ctx context.Context, id string, resource string) error
	Exists(ctx context.Context, id string, resource string) (bool, error)
}

// StorageClass builds a MediaStorage from the resolved configuration.
// Instantiation is left to the caller of SelectStorageClass.
type StorageClass interface {
	New(ctx context.Context, cfg *Snapshot) (MediaStorage, error)
}

type StorageClassFunc func(ctx context.Context, cfg *Snapshot) (MediaStorage, error)

func (f StorageClassFunc) New(ctx context.Context, cfg *Snapshot) (MediaStorage, error) {
	return f(ctx, cfg)
}

type IndexRequest struct {
	Resource string
	Source   string
	Name     string
	Keys     []IndexKey
	Options  IndexOptions
}

// IndexStore creates indexes in the underlying store. Implementations must
// return errors matching ErrUnknownResource when the resource has no backing
// source and ErrDuplicateKey when existing rows violate a unique index.
type IndexStore interface {
	CreateIndex(ctx context.Context, req IndexRequest) error
}

// TaskIDEnsureIndexes asks a task worker to ensure the domain indexes.
const TaskIDEnsureIndexes = "assembly.indexes.ensure"

type TaskMessage struct {
	TaskID         string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

// EnsureIndexesTask builds the deferred form of App.InitIndexes.
func EnsureIndexesTask(ignoreDuplicateKeys bool) *TaskMessage {
	return &TaskMessage{
		TaskID:         TaskIDEnsureIndexes,
		ScriptPath:     TaskIDEnsureIndexes,
		Parameters:     map[string]any{"ignore_duplicate_keys": ignoreDuplicateKeys},
		IdempotencyKey: TaskIDEnsureIndexes,
		DedupPolicy:    "drop",
	}
}

type TaskEnqueuer interface {
	Enqueue(ctx context.Context, msg *TaskMessage) error
}

// CommandRegistry receives command and query handlers registered by modules.
type CommandRegistry interface {
	RegisterCommand(cmd any) error
	RegisterQuery(qry any) error
	Initialize() error
}

type UserContext struct {
	ID       string
	Language string
}
