package query

import (
	"github.com/goliatone/go-assembly/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[ResolveLocaleMessage, string]          = (*ResolveLocaleQuery)(nil)
	_ gocmd.Querier[ListInstalledModulesMessage, []string] = (*ListInstalledModulesQuery)(nil)
	_ gocmd.Querier[GetItemScopeMessage, core.ItemScope]   = (*GetItemScopeQuery)(nil)

	_ LocaleResolver         = (*core.LocaleResolver)(nil)
	_ InstalledModulesReader = (*core.App)(nil)
	_ ItemScopeReader        = (*core.ResourceRegistry)(nil)
)
