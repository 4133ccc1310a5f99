package assembly

import (
	"fmt"

	"github.com/goliatone/go-assembly/adapters/gocommand"
	assemblycommand "github.com/goliatone/go-assembly/command"
	"github.com/goliatone/go-assembly/core"
	assemblyquery "github.com/goliatone/go-assembly/query"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
)

// FacadeModuleName is the module that subscribes the facade handlers on the
// app command registry.
const FacadeModuleName = "assembly.commands"

type Commands struct {
	InstallModule    *assemblycommand.InstallModuleCommand
	EnsureIndexes    *assemblycommand.EnsureIndexesCommand
	DeclareItemScope *assemblycommand.DeclareItemScopeCommand
	RegisterResource *assemblycommand.RegisterResourceCommand
}

type Queries struct {
	ResolveLocale        *assemblyquery.ResolveLocaleQuery
	ListInstalledModules *assemblyquery.ListInstalledModulesQuery
	GetItemScope         *assemblyquery.GetItemScopeQuery
}

type Facade struct {
	app      *core.App
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	tasks core.TaskEnqueuer
}

// WithFacadeTasks overrides the enqueuer used for deferred index requests.
func WithFacadeTasks(tasks core.TaskEnqueuer) FacadeOption {
	return func(options *facadeOptions) {
		options.tasks = tasks
	}
}

func NewFacade(app *core.App, opts ...FacadeOption) (*Facade, error) {
	if app == nil {
		return nil, fmt.Errorf("assembly: app is required")
	}
	cfg := facadeOptions{tasks: app.Tasks()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{app: app}
	facade.commands = Commands{
		InstallModule:    assemblycommand.NewInstallModuleCommand(app),
		EnsureIndexes:    assemblycommand.NewEnsureIndexesCommand(app, cfg.tasks),
		DeclareItemScope: assemblycommand.NewDeclareItemScopeCommand(app),
		RegisterResource: assemblycommand.NewRegisterResourceCommand(app),
	}
	facade.queries = Queries{
		ResolveLocale:        assemblyquery.NewResolveLocaleQuery(app.LocaleResolver()),
		ListInstalledModules: assemblyquery.NewListInstalledModulesQuery(app),
		GetItemScope:         assemblyquery.NewGetItemScopeQuery(app.Resources()),
	}
	return facade, nil
}

func (f *Facade) App() *core.App {
	if f == nil {
		return nil
	}
	return f.app
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

// Register subscribes every facade handler on the dispatcher and records it in
// adapter. On failure the subscriptions made so far are dropped.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter) ([]commanddispatcher.Subscription, error) {
	if f == nil {
		return nil, fmt.Errorf("assembly: facade is nil")
	}
	var subscriptions []commanddispatcher.Subscription
	keep := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			return err
		}
		subscriptions = append(subscriptions, sub)
		return nil
	}
	steps := []func() error{
		func() error { return keep(gocommand.RegisterCommand(adapter, f.commands.InstallModule)) },
		func() error { return keep(gocommand.RegisterCommand(adapter, f.commands.EnsureIndexes)) },
		func() error { return keep(gocommand.RegisterCommand(adapter, f.commands.DeclareItemScope)) },
		func() error { return keep(gocommand.RegisterCommand(adapter, f.commands.RegisterResource)) },
		func() error { return keep(gocommand.RegisterQuery(adapter, f.queries.ResolveLocale)) },
		func() error { return keep(gocommand.RegisterQuery(adapter, f.queries.ListInstalledModules)) },
		func() error { return keep(gocommand.RegisterQuery(adapter, f.queries.GetItemScope)) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			for _, sub := range subscriptions {
				sub.Unsubscribe()
			}
			return nil, err
		}
	}
	return subscriptions, nil
}

// FacadeModule builds a facade when the module is installed and subscribes it
// on the app command registry. Subscriptions are passed to track when set.
func FacadeModule(track func([]commanddispatcher.Subscription)) core.Module {
	return core.Module{
		Name: FacadeModuleName,
		Init: func(app *core.App) error {
			adapter, ok := app.Commands().(*gocommand.RegistryAdapter)
			if !ok || adapter == nil {
				return fmt.Errorf("assembly: %s requires a go-command registry", FacadeModuleName)
			}
			facade, err := NewFacade(app)
			if err != nil {
				return err
			}
			subscriptions, err := facade.Register(adapter)
			if err != nil {
				return err
			}
			if track != nil {
				track(subscriptions)
			}
			return nil
		},
	}
}
