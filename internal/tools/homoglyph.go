package tools

import "unicode"

// highRiskArgFields are the argument keys scanned for mixed-script content
// before an approval prompt is shown — the fields most likely to carry a
// visually-spoofed path or URL.
var highRiskArgFields = map[string]bool{
	"url":       true,
	"command":   true,
	"path":      true,
	"file_path": true,
	"cwd":       true,
}

// confusableScripts are scripts whose letterforms are commonly used to spoof
// Latin text (Cyrillic 'а' for 'a', Greek 'ο' for 'o', etc). A string mixing
// Latin with any of these is the classic homograph-attack shape.
var confusableScripts = []*unicode.RangeTable{
	unicode.Cyrillic,
	unicode.Greek,
	unicode.Armenian,
}

// HomoglyphWarning is a proof that a tool argument contained a mixed-script
// run in a high-risk field, attached to the approval request and shown to
// the user verbatim (never silently dropped).
type HomoglyphWarning struct {
	Field   string
	Value   string
	Scripts []string
}

// detectMixedScript reports whether s mixes Latin letters with a confusable
// script. Returns nil if the text is single-script or contains no Latin
// letters at all (pure non-Latin text isn't a spoofing attempt on its own).
func detectMixedScript(field, s string) *HomoglyphWarning {
	hasLatin := false
	found := map[string]bool{}

	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.Is(unicode.Latin, r) {
			hasLatin = true
			continue
		}
		for i, tbl := range confusableScripts {
			if unicode.Is(tbl, r) {
				found[scriptNames[i]] = true
			}
		}
	}

	if !hasLatin || len(found) == 0 {
		return nil
	}

	w := &HomoglyphWarning{Field: field, Value: s}
	for name := range found {
		w.Scripts = append(w.Scripts, name)
	}
	return w
}

var scriptNames = []string{"Cyrillic", "Greek", "Armenian"}

// analyzeToolArguments recursively scans the high-risk string fields of args
// for mixed-script content, returning one warning per offending value.
func analyzeToolArguments(args map[string]any) []HomoglyphWarning {
	var warnings []HomoglyphWarning
	for field, value := range args {
		collectHomoglyphWarnings(field, value, highRiskArgFields[field], &warnings)
	}
	return warnings
}

func collectHomoglyphWarnings(field string, value any, highRisk bool, warnings *[]HomoglyphWarning) {
	switch v := value.(type) {
	case string:
		if !highRisk {
			return
		}
		if w := detectMixedScript(field, v); w != nil {
			*warnings = append(*warnings, *w)
		}
	case map[string]any:
		for k, nested := range v {
			collectHomoglyphWarnings(k, nested, highRiskArgFields[k], warnings)
		}
	case []any:
		for _, item := range v {
			collectHomoglyphWarnings(field, item, highRisk, warnings)
		}
	}
}
