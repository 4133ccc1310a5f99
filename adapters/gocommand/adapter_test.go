package gocommand

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-assembly/command"
	"github.com/goliatone/go-assembly/core"
	"github.com/goliatone/go-assembly/query"
	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	"github.com/google/go-cmp/cmp"
)

type untypedMessage struct{}

func (untypedMessage) Type() string { return "" }

type rejectingMessage struct{}

func (rejectingMessage) Type() string { return "assembly.command.reject" }

func (rejectingMessage) Validate() error { return errors.New("invalid payload") }

type queueMessage struct{}

func (queueMessage) Type() string { return "assembly.command.queue" }

func TestValidateMessage(t *testing.T) {
	if err := ValidateMessage(command.InstallModuleMessage{Name: "archive"}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessage(untypedMessage{}); err == nil {
		t.Fatalf("expected empty type to fail")
	}
	if err := ValidateMessage(rejectingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestAssemblyCommandsDispatchThroughRegistry(t *testing.T) {
	ctx := context.Background()
	adapter := NewRegistryAdapter(nil)
	installs := 0
	var subscriptions []commanddispatcher.Subscription
	defer func() {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
	}()

	_, err := core.Assemble(ctx,
		core.WithCommandRegistry(adapter),
		core.WithConfig(map[string]any{"core_apps": []any{"assembly.commands"}}),
		core.WithModules(core.NewModuleCatalog(
			core.Module{
				Name: "assembly.commands",
				Init: func(app *core.App) error {
					registry := app.Commands().(*RegistryAdapter)
					installSub, err := RegisterCommand(registry, command.NewInstallModuleCommand(app))
					if err != nil {
						return err
					}
					subscriptions = append(subscriptions, installSub)
					listSub, err := RegisterQuery(registry, query.NewListInstalledModulesQuery(app))
					if err != nil {
						return err
					}
					subscriptions = append(subscriptions, listSub)
					return nil
				},
			},
			core.Module{
				Name: "planning",
				Init: func(*core.App) error {
					installs++
					return nil
				},
			},
		)),
	)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if err := Dispatch(ctx, command.InstallModuleMessage{Name: "planning"}); err != nil {
		t.Fatalf("dispatch install: %v", err)
	}
	if installs != 1 {
		t.Fatalf("expected planning to be installed once, got %d", installs)
	}

	installed, err := Query[query.ListInstalledModulesMessage, []string](ctx, query.ListInstalledModulesMessage{})
	if err != nil {
		t.Fatalf("query installed: %v", err)
	}
	if diff := cmp.Diff([]string{"assembly.commands", "planning"}, installed); diff != "" {
		t.Fatalf("installed modules mismatch (-want +got):\n%s", diff)
	}
}

func TestResolverHooksRunOnInitialize(t *testing.T) {
	adapter := NewRegistryAdapter(gocmd.NewRegistry())
	called := 0
	if err := adapter.AddResolver("audit", func(any, gocmd.CommandMeta, *gocmd.Registry) error {
		called++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("audit") {
		t.Fatalf("expected audit resolver to be registered")
	}
	if err := adapter.RegisterCommand(command.NewEnsureIndexesCommand(nil, nil)); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if called == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}
}

func TestQueueResolverMirrorsCommands(t *testing.T) {
	adapter := NewRegistryAdapter(gocmd.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	cmd := gocmd.CommandFunc[queueMessage](func(context.Context, queueMessage) error { return nil })
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, ok := queueRegistry.Get("assembly.command.queue"); !ok {
		t.Fatalf("expected command to be mirrored into queue registry")
	}
	if err := adapter.AddQueueResolver("nil", nil); err == nil {
		t.Fatalf("expected nil queue registry to fail")
	}
}

func TestNilAdapterIsNotConfigured(t *testing.T) {
	var adapter *RegistryAdapter
	if err := adapter.RegisterCommand(struct{}{}); err == nil {
		t.Fatalf("expected nil adapter to fail")
	}
	if adapter.HasResolver("x") {
		t.Fatalf("expected nil adapter to report no resolvers")
	}
}
