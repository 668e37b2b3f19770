package dashboard

import "testing"

func TestResolveLocalizedValue(t *testing.T) {
	values := map[string]string{
		"en":    "Overview",
		"es":    "Panel general",
		"es-mx": "Tablero",
	}
	if got := ResolveLocalizedValue(values, "es-MX", "fallback"); got != "Tablero" {
		t.Fatalf("expected region-specific match, got %q", got)
	}
	if got := ResolveLocalizedValue(values, "es-co", "fallback"); got != "Panel general" {
		t.Fatalf("expected base locale fallback, got %q", got)
	}
	if got := ResolveLocalizedValue(values, "fr", "Panel"); got != "Panel" {
		t.Fatalf("expected fallback when locale missing, got %q", got)
	}
	if got := ResolveLocalizedValue(nil, "es", "Panel"); got != "Panel" {
		t.Fatalf("expected fallback when no localized map, got %q", got)
	}
}

func TestDefinitionLocalizedTitles(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	def, ok := reg.Definition("general")
	if !ok {
		t.Fatalf("general dashboard missing")
	}
	if got := def.TitleForLocale("en-US"); got != "Overview" {
		t.Fatalf("expected english title, got %q", got)
	}
	if got := def.TitleForLocale(DefaultLocale); got != "Panel general" {
		t.Fatalf("expected spanish title, got %q", got)
	}
	if got := def.Cards[0].LabelForLocale("en"); got != "Clients" {
		t.Fatalf("expected english card label, got %q", got)
	}
	if got := def.Charts[0].TitleForLocale("es"); got != "Equipos por estado" {
		t.Fatalf("expected chart title, got %q", got)
	}
}
