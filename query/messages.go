package query

import (
	"strings"

	"github.com/goliatone/go-assembly/core"
)

const (
	TypeResolveLocale        = "assembly.query.locale.resolve"
	TypeListInstalledModules = "assembly.query.modules.installed"
	TypeGetItemScope         = "assembly.query.item_scope.get"
)

// ResolveLocaleMessage resolves the locale for User, or for the user
// already carried by the context when User is nil.
type ResolveLocaleMessage struct {
	User *core.UserContext
}

func (ResolveLocaleMessage) Type() string { return TypeResolveLocale }

type ListInstalledModulesMessage struct{}

func (ListInstalledModulesMessage) Type() string { return TypeListInstalledModules }

type GetItemScopeMessage struct {
	Name string
}

func (GetItemScopeMessage) Type() string { return TypeGetItemScope }

func (m GetItemScopeMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return queryValidationError("name", "item scope name is required")
	}
	return nil
}
