package dashboard

import (
	"strings"
)

// DefaultLocale is used when a request carries no locale.
const DefaultLocale = "es"

// ResolveLocalizedValue selects the best translation for the provided locale and falls back to the supplied value.
// Keys are matched case-insensitively, and language-region pairs (`es-co`) fall back to their
// base language (`es`) when present.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, candidate := range localeCandidates(locale) {
		for key, value := range values {
			if strings.EqualFold(key, candidate) && value != "" {
				return value
			}
		}
	}
	return fallback
}

// TitleForLocale returns the dashboard title for locale.
func (def Definition) TitleForLocale(locale string) string {
	return ResolveLocalizedValue(def.TitleLocalized, locale, def.Title)
}

// TitleForLocale returns the chart title for locale.
func (c ChartDescriptor) TitleForLocale(locale string) string {
	return ResolveLocalizedValue(c.TitleLocalized, locale, c.Title)
}

// LabelForLocale returns the card label for locale.
func (c CardDescriptor) LabelForLocale(locale string) string {
	return ResolveLocalizedValue(c.LabelLocalized, locale, c.Label)
}

func normalizeLocaleMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	normalized := make(map[string]string, len(values))
	for key, value := range values {
		key = normalizeLocale(key)
		if key == "" || value == "" {
			continue
		}
		normalized[key] = value
	}
	return normalized
}

func localeCandidates(locale string) []string {
	locale = normalizeLocale(locale)
	if locale == "" {
		return []string{"default"}
	}
	candidates := []string{locale}
	if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		candidates = append(candidates, locale[:idx])
	}
	return append(candidates, "default")
}

func normalizeLocale(locale string) string {
	return strings.TrimSpace(strings.ToLower(locale))
}
