package core

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/go-cmp/cmp"
)

func TestModuleInstaller_InstallsOnce(t *testing.T) {
	calls := 0
	catalog := NewModuleCatalog(Module{Name: "core.users", Init: func(*App) error {
		calls++
		return nil
	}})
	metrics := &captureMetricsRecorder{}
	installer := NewModuleInstaller(catalog, WithInstallerMetrics(metrics))

	for range 2 {
		if err := installer.Install(context.Background(), &App{}, "core.users"); err != nil {
			t.Fatalf("install: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected hook to run once, got %d", calls)
	}
	if installer.Installed().Len() != 1 {
		t.Fatalf("expected one installed module, got %d", installer.Installed().Len())
	}
	if counters := metrics.countersNamed("assembly.module.install.total"); len(counters) != 1 {
		t.Fatalf("expected one install metric, got %d", len(counters))
	}
}

func TestModuleInstaller_ReentrantInstallDoesNotLoop(t *testing.T) {
	order := []string{}
	catalog := NewModuleCatalog()
	installer := NewModuleInstaller(catalog)
	app := &App{installer: installer}

	_ = catalog.Register(Module{Name: "a", Init: func(app *App) error {
		order = append(order, "a")
		return app.Install(context.Background(), "b")
	}})
	_ = catalog.Register(Module{Name: "b", Init: func(app *App) error {
		order = append(order, "b")
		return app.Install(context.Background(), "a")
	}})

	if err := installer.Install(context.Background(), app, "a"); err != nil {
		t.Fatalf("install: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, order); diff != "" {
		t.Fatalf("hook order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, installer.Installed().Names()); diff != "" {
		t.Fatalf("installed set mismatch (-want +got):\n%s", diff)
	}
}

func TestModuleInstaller_ModuleWithoutHook(t *testing.T) {
	installer := NewModuleInstaller(NewModuleCatalog(Module{Name: "core.static"}))
	if err := installer.Install(context.Background(), &App{}, "core.static"); err != nil {
		t.Fatalf("expected hookless module to install: %v", err)
	}
	if !installer.Installed().Has("core.static") {
		t.Fatalf("expected module to be recorded")
	}
}

func TestModuleInstaller_HookErrorStopsInstallAll(t *testing.T) {
	hookErr := errors.New("search index unavailable")
	ran := []string{}
	catalog := NewModuleCatalog(
		Module{Name: "one", Init: func(*App) error { ran = append(ran, "one"); return nil }},
		Module{Name: "two", Init: func(*App) error { ran = append(ran, "two"); return hookErr }},
		Module{Name: "three", Init: func(*App) error { ran = append(ran, "three"); return nil }},
	)
	installer := NewModuleInstaller(catalog)

	err := installer.InstallAll(context.Background(), &App{}, "one", "two", "three")
	if !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error in chain, got %v", err)
	}
	if diff := cmp.Diff([]string{"one", "two"}, ran); diff != "" {
		t.Fatalf("hooks run mismatch (-want +got):\n%s", diff)
	}
	if !installer.Installed().Has("two") {
		t.Fatalf("expected failing module to stay recorded as installed")
	}
}

func TestModuleInstaller_UnknownModule(t *testing.T) {
	installer := NewModuleInstaller(NewModuleCatalog())
	err := installer.Install(context.Background(), &App{}, "missing.module")
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != AssemblyErrorModuleNotFound {
		t.Fatalf("expected module not found text code, got %v", err)
	}
}

func TestModuleCatalog_RejectsDuplicates(t *testing.T) {
	catalog := NewModuleCatalog()
	if err := catalog.Register(Module{Name: "x"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := catalog.Register(Module{Name: "x"}); err == nil {
		t.Fatalf("expected duplicate module to be rejected")
	}
	if err := catalog.Register(Module{Name: " "}); err == nil {
		t.Fatalf("expected empty module name to be rejected")
	}
}
