// Package i18n localizes user-facing messages using golang.org/x/text catalogs.
package i18n

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// LangParam is the query parameter that overrides Accept-Language.
const LangParam = "lang"

// Translator renders message keys in a requested language.
type Translator struct {
	catalog   *catalog.Builder
	matcher   language.Matcher
	supported []language.Tag
	fallback  language.Tag
	keys      map[string]struct{}
}

// NewTranslator builds a Translator with the bundled English and Spanish catalogs.
// defaultLocale must be one of the bundled locales.
func NewTranslator(defaultLocale string) (*Translator, error) {
	locales := []struct {
		tag      language.Tag
		messages map[string]string
	}{
		{language.English, messagesEN},
		{language.Spanish, messagesES},
	}

	fallback, err := language.Parse(strings.TrimSpace(defaultLocale))
	if err != nil {
		return nil, fmt.Errorf("invalid default locale %q: %w", defaultLocale, err)
	}

	supported := make([]language.Tag, 0, len(locales))
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	keys := make(map[string]struct{}, len(messagesEN))
	found := false
	for _, l := range locales {
		for key, msg := range l.messages {
			if err := builder.SetString(l.tag, key, msg); err != nil {
				return nil, fmt.Errorf("register %s message %q: %w", l.tag, key, err)
			}
			keys[key] = struct{}{}
		}
		if l.tag.String() == fallback.String() {
			fallback = l.tag
			found = true
		}
		supported = append(supported, l.tag)
	}
	if !found {
		return nil, fmt.Errorf("default locale %q is not bundled", defaultLocale)
	}

	// The matcher's first entry is its default, so put the fallback first.
	ordered := []language.Tag{fallback}
	for _, tag := range supported {
		if tag.String() != fallback.String() {
			ordered = append(ordered, tag)
		}
	}

	return &Translator{
		catalog:   builder,
		matcher:   language.NewMatcher(ordered),
		supported: ordered,
		fallback:  fallback,
		keys:      keys,
	}, nil
}

// Supported returns the bundled languages, default first.
func (t *Translator) Supported() []language.Tag {
	out := make([]language.Tag, len(t.supported))
	copy(out, t.supported)
	return out
}

// Default returns the fallback language.
func (t *Translator) Default() language.Tag {
	return t.fallback
}

// Match picks the best bundled language for the given preferences, in order.
// Empty or unparsable preferences are skipped.
func (t *Translator) Match(prefs ...string) language.Tag {
	for _, pref := range prefs {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(pref)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, idx, conf := t.matcher.Match(tags...)
		if conf == language.No {
			continue
		}
		return t.supported[idx]
	}
	return t.fallback
}

// ResolveRequest determines the language for r from the lang query parameter,
// then the Accept-Language header.
func (t *Translator) ResolveRequest(r *http.Request) language.Tag {
	if r == nil {
		return t.fallback
	}
	return t.Match(r.URL.Query().Get(LangParam), r.Header.Get("Accept-Language"))
}

// Translate renders key in tag. Unknown keys are returned unchanged.
func (t *Translator) Translate(tag language.Tag, key string, args ...any) string {
	if _, ok := t.keys[key]; !ok {
		return key
	}
	p := message.NewPrinter(tag, message.Catalog(t.catalog))
	return p.Sprintf(key, args...)
}

// TranslateContext renders key in the language stored in ctx.
func (t *Translator) TranslateContext(ctx context.Context, key string, args ...any) string {
	return t.Translate(LocaleFrom(ctx, t.fallback), key, args...)
}

type localeKey struct{}

// WithLocale stores tag in ctx.
func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, localeKey{}, tag)
}

// LocaleFrom returns the language stored in ctx, or fallback.
func LocaleFrom(ctx context.Context, fallback language.Tag) language.Tag {
	if tag, ok := ctx.Value(localeKey{}).(language.Tag); ok {
		return tag
	}
	return fallback
}
