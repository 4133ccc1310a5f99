package core

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/language"
)

const DefaultLanguage = "en"

type userContextKey struct{}

type localeContextKey struct{}

func WithUserContext(ctx context.Context, user UserContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userContextKey{}, user)
}

func UserFromContext(ctx context.Context) (UserContext, bool) {
	if ctx == nil {
		return UserContext{}, false
	}
	user, ok := ctx.Value(userContextKey{}).(UserContext)
	return user, ok
}

func WithLocale(ctx context.Context, locale string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// LocaleFromContext returns the locale stored by the locale middleware.
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	locale, _ := ctx.Value(localeContextKey{}).(string)
	return locale
}

// ResolveLocale picks the user language, or configuredDefault when the user
// has none or it is not a well-formed locale tag. Unknown but well-formed
// subtags ("zz") are kept. The result uses underscores ("en_US").
func ResolveLocale(user *UserContext, configuredDefault string) string {
	fallback := strings.TrimSpace(configuredDefault)
	if fallback == "" {
		fallback = DefaultLanguage
	}
	selected := fallback
	if user != nil && strings.TrimSpace(user.Language) != "" {
		selected = strings.TrimSpace(user.Language)
	}
	if !validLocale(selected) {
		selected = fallback
	}
	return strings.ReplaceAll(selected, "-", "_")
}

func validLocale(value string) bool {
	if value == "" {
		return false
	}
	_, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err == nil {
		return true
	}
	// well-formed tags with an unregistered subtag are still locales
	var unknown language.ValueError
	return errors.As(err, &unknown)
}

type LocaleResolver struct {
	DefaultLanguage string
}

func NewLocaleResolver(defaultLanguage string) *LocaleResolver {
	return &LocaleResolver{DefaultLanguage: defaultLanguage}
}

// Resolve reads the user from ctx.
func (r *LocaleResolver) Resolve(ctx context.Context) string {
	fallback := DefaultLanguage
	if r != nil {
		fallback = r.DefaultLanguage
	}
	user, ok := UserFromContext(ctx)
	if !ok {
		return ResolveLocale(nil, fallback)
	}
	return ResolveLocale(&user, fallback)
}
