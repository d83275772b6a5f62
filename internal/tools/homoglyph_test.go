package tools

import "testing"

func TestDetectMixedScriptFlagsCyrillicLookalike(t *testing.T) {
	// "а" (U+0430 CYRILLIC SMALL LETTER A) substituted for "a" in "paypal".
	w := detectMixedScript("url", "https://pаypal.com/login")
	if w == nil {
		t.Fatalf("expected mixed-script warning")
	}
	if len(w.Scripts) != 1 || w.Scripts[0] != "Cyrillic" {
		t.Fatalf("expected Cyrillic in scripts, got %v", w.Scripts)
	}
}

func TestDetectMixedScriptIgnoresPureLatin(t *testing.T) {
	if w := detectMixedScript("url", "https://example.com/login"); w != nil {
		t.Fatalf("expected no warning for pure-Latin text, got %+v", w)
	}
}

func TestDetectMixedScriptIgnoresPureNonLatin(t *testing.T) {
	// All-Cyrillic text isn't a spoofing attempt against Latin text.
	if w := detectMixedScript("path", "привет"); w != nil {
		t.Fatalf("expected no warning for pure non-Latin text, got %+v", w)
	}
}

func TestAnalyzeToolArgumentsOnlyScansHighRiskFields(t *testing.T) {
	args := map[string]any{
		"url":  "https://pаypal.com",
		"note": "pаypal mentioned here too",
	}
	warnings := analyzeToolArguments(args)
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning (url only), got %d: %+v", len(warnings), warnings)
	}
	if warnings[0].Field != "url" {
		t.Fatalf("expected warning on url field, got %q", warnings[0].Field)
	}
}

func TestAnalyzeToolArgumentsRecursesIntoNestedMaps(t *testing.T) {
	args := map[string]any{
		"options": map[string]any{
			"path": "/tmp/pаypal/config",
		},
	}
	warnings := analyzeToolArguments(args)
	if len(warnings) != 1 {
		t.Fatalf("expected one warning from nested map, got %d", len(warnings))
	}
}
