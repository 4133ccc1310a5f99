package command

import (
	"github.com/goliatone/go-assembly/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[InstallModuleMessage]    = (*InstallModuleCommand)(nil)
	_ gocmd.Commander[EnsureIndexesMessage]    = (*EnsureIndexesCommand)(nil)
	_ gocmd.Commander[DeclareItemScopeMessage] = (*DeclareItemScopeCommand)(nil)
	_ gocmd.Commander[RegisterResourceMessage] = (*RegisterResourceCommand)(nil)

	_ ModuleInstaller   = (*core.App)(nil)
	_ IndexInitializer  = (*core.App)(nil)
	_ ItemScopeDeclarer = (*core.App)(nil)
	_ ResourceRegistrar = (*core.App)(nil)
)
