package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-assembly/core"
)

type LocaleResolver interface {
	Resolve(ctx context.Context) string
}

type InstalledModulesReader interface {
	InstalledModules() []string
}

type ItemScopeReader interface {
	ItemScope(name string) (core.ItemScope, bool)
}

type ResolveLocaleQuery struct {
	resolver LocaleResolver
}

func NewResolveLocaleQuery(resolver LocaleResolver) *ResolveLocaleQuery {
	return &ResolveLocaleQuery{resolver: resolver}
}

func (q *ResolveLocaleQuery) Query(ctx context.Context, msg ResolveLocaleMessage) (string, error) {
	if q == nil || q.resolver == nil {
		return "", queryDependencyError("query: locale resolver is required")
	}
	if msg.User != nil {
		ctx = core.WithUserContext(ctx, *msg.User)
	}
	return q.resolver.Resolve(ctx), nil
}

type ListInstalledModulesQuery struct {
	reader InstalledModulesReader
}

func NewListInstalledModulesQuery(reader InstalledModulesReader) *ListInstalledModulesQuery {
	return &ListInstalledModulesQuery{reader: reader}
}

// Query returns module names in install order.
func (q *ListInstalledModulesQuery) Query(context.Context, ListInstalledModulesMessage) ([]string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: installed modules reader is required")
	}
	return append([]string(nil), q.reader.InstalledModules()...), nil
}

type GetItemScopeQuery struct {
	reader ItemScopeReader
}

func NewGetItemScopeQuery(reader ItemScopeReader) *GetItemScopeQuery {
	return &GetItemScopeQuery{reader: reader}
}

func (q *GetItemScopeQuery) Query(_ context.Context, msg GetItemScopeMessage) (core.ItemScope, error) {
	if q == nil || q.reader == nil {
		return core.ItemScope{}, queryDependencyError("query: item scope reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.ItemScope{}, err
	}
	name := strings.TrimSpace(msg.Name)
	scope, ok := q.reader.ItemScope(name)
	if !ok {
		return core.ItemScope{}, queryNotFoundError("query: item scope " + name + " is not declared")
	}
	return scope, nil
}
