// Package i18n serves the embedded en/es/fr/de string catalogs.
package i18n

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const DefaultLocale = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

// Supported lists the locales in matcher preference order; the first is the fallback.
var Supported = []string{"en", "es", "fr", "de"}

type Bundle struct {
	catalogs map[string]map[string]string
	tags     []language.Tag
	matcher  language.Matcher
}

// Load parses the embedded catalogs.
func Load() (*Bundle, error) {
	b := &Bundle{catalogs: make(map[string]map[string]string, len(Supported))}
	for _, locale := range Supported {
		data, err := localeFS.ReadFile("locales/" + locale + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", locale, err)
		}
		catalog := make(map[string]string)
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", locale, err)
		}
		b.catalogs[locale] = catalog
		b.tags = append(b.tags, language.MustParse(locale))
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Has reports whether locale is one of the supported locales.
func (b *Bundle) Has(locale string) bool {
	_, ok := b.catalogs[locale]
	return ok
}

// Translate resolves key in locale, then in en, then returns the key itself.
// {name} placeholders are replaced from params.
func (b *Bundle) Translate(locale, key string, params map[string]string) string {
	text, ok := b.catalogs[locale][key]
	if !ok {
		text, ok = b.catalogs[DefaultLocale][key]
	}
	if !ok {
		text = key
	}
	if len(params) == 0 {
		return text
	}
	pairs := make([]string, 0, len(params)*2)
	for name, value := range params {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Catalog returns the catalog of locale with missing keys filled from en.
func (b *Bundle) Catalog(locale string) (map[string]string, bool) {
	own, ok := b.catalogs[locale]
	if !ok {
		return nil, false
	}
	merged := make(map[string]string, len(b.catalogs[DefaultLocale]))
	for k, v := range b.catalogs[DefaultLocale] {
		merged[k] = v
	}
	for k, v := range own {
		merged[k] = v
	}
	return merged, true
}

// MissingKeys lists en keys that locale does not translate.
func (b *Bundle) MissingKeys(locale string) []string {
	var missing []string
	for k := range b.catalogs[DefaultLocale] {
		if _, ok := b.catalogs[locale][k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// Match picks the best supported locale for an Accept-Language header value.
func (b *Bundle) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, index, confidence := b.matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLocale
	}
	return Supported[index]
}

// Negotiate resolves the request locale: explicit query value, then cookie,
// then Accept-Language, then en.
func (b *Bundle) Negotiate(query, cookie, acceptLanguage string) string {
	for _, candidate := range []string{query, cookie} {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if b.Has(candidate) {
			return candidate
		}
	}
	if acceptLanguage != "" {
		return b.Match(acceptLanguage)
	}
	return DefaultLocale
}
