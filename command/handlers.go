package command

import (
	"context"
	"strings"

	"github.com/goliatone/go-assembly/core"
)

type ModuleInstaller interface {
	Install(ctx context.Context, name string) error
}

type IndexInitializer interface {
	InitIndexes(ctx context.Context, ignoreDuplicateKeys bool) error
}

type ItemScopeDeclarer interface {
	DeclareItemScope(name string, schema core.Schema) error
}

type ResourceRegistrar interface {
	RegisterResource(name string, resource *core.Resource) error
}

type InstallModuleCommand struct {
	installer ModuleInstaller
}

func NewInstallModuleCommand(installer ModuleInstaller) *InstallModuleCommand {
	return &InstallModuleCommand{installer: installer}
}

func (c *InstallModuleCommand) Execute(ctx context.Context, msg InstallModuleMessage) error {
	if c == nil || c.installer == nil {
		return commandDependencyError("command: module installer is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.installer.Install(ctx, strings.TrimSpace(msg.Name))
}

type EnsureIndexesCommand struct {
	indexes IndexInitializer
	tasks   core.TaskEnqueuer
}

// NewEnsureIndexesCommand accepts a nil tasks enqueuer; deferred requests then
// run inline.
func NewEnsureIndexesCommand(indexes IndexInitializer, tasks core.TaskEnqueuer) *EnsureIndexesCommand {
	return &EnsureIndexesCommand{indexes: indexes, tasks: tasks}
}

func (c *EnsureIndexesCommand) Execute(ctx context.Context, msg EnsureIndexesMessage) error {
	if c == nil || c.indexes == nil {
		return commandDependencyError("command: index initializer is required")
	}
	if msg.Deferred && c.tasks != nil {
		return c.tasks.Enqueue(ctx, core.EnsureIndexesTask(msg.IgnoreDuplicateKeys))
	}
	return c.indexes.InitIndexes(ctx, msg.IgnoreDuplicateKeys)
}

type DeclareItemScopeCommand struct {
	declarer ItemScopeDeclarer
}

func NewDeclareItemScopeCommand(declarer ItemScopeDeclarer) *DeclareItemScopeCommand {
	return &DeclareItemScopeCommand{declarer: declarer}
}

func (c *DeclareItemScopeCommand) Execute(_ context.Context, msg DeclareItemScopeMessage) error {
	if c == nil || c.declarer == nil {
		return commandDependencyError("command: item scope declarer is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.declarer.DeclareItemScope(strings.TrimSpace(msg.Name), msg.Schema)
}

type RegisterResourceCommand struct {
	registrar ResourceRegistrar
}

func NewRegisterResourceCommand(registrar ResourceRegistrar) *RegisterResourceCommand {
	return &RegisterResourceCommand{registrar: registrar}
}

func (c *RegisterResourceCommand) Execute(_ context.Context, msg RegisterResourceMessage) error {
	if c == nil || c.registrar == nil {
		return commandDependencyError("command: resource registrar is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.registrar.RegisterResource(strings.TrimSpace(msg.Name), msg.Resource)
}
