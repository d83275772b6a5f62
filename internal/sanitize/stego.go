// Package sanitize strips untrusted terminal escape sequences and
// steganographic Unicode from text before it reaches a display, a log line,
// or the model's context, and redacts secret values that leak through either
// path.
package sanitize

// IsSteganographic reports whether r belongs to a class of Unicode code
// points that render invisibly (or near-invisibly) in a terminal or chat
// surface, and so can be used to smuggle hidden instructions or split a
// secret across an otherwise-matchable string. This predicate is the single
// source of truth shared by the sandbox's path validator and the terminal
// sanitizer below — both must agree on what counts as "invisible".
func IsSteganographic(r rune) bool {
	switch {
	case r >= 0xE0000 && r <= 0xE007F:
		// Unicode Tags block, used historically for ASCII-smuggling payloads.
		return true
	case r >= 0x200B && r <= 0x200F:
		// Zero-width space/non-joiner/joiner, LTR/RTL marks.
		return true
	case r >= 0x2060 && r <= 0x2069:
		// Word joiner and the invisible math/separator operators.
		return true
	case r == 0xFEFF:
		// Zero-width no-break space / BOM.
		return true
	case r >= 0x202A && r <= 0x202E:
		// Bidi embedding/override controls.
		return true
	case r >= 0x2066 && r <= 0x2069:
		// Bidi isolate controls (overlaps 2060-2069 range above, kept
		// explicit for clarity).
		return true
	case r == 0x061C:
		// Arabic letter mark.
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		// Variation selectors 1-16.
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		// Variation selectors supplement.
		return true
	case r == 0x00AD:
		// Soft hyphen.
		return true
	case r == 0x034F:
		// Combining grapheme joiner.
		return true
	case r >= 0xFFF9 && r <= 0xFFFB:
		// Interlinear annotation anchor/separator/terminator.
		return true
	case r == 0x1160 || (r >= 0x115F && r <= 0x1160):
		// Hangul fillers.
		return true
	case r == 0x17B4 || r == 0x17B5:
		// Khmer inherent vowels used as invisible fillers.
		return true
	case r == 0x180B || r == 0x180C || r == 0x180D || r == 0x180E:
		// Mongolian free variation selectors and vowel separator.
		return true
	default:
		return false
	}
}

// StripSteganographicChars removes every code point IsSteganographic
// reports on, leaving all other runes untouched and in order.
func StripSteganographicChars(s string) string {
	if !containsSteganographic(s) {
		return s
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if IsSteganographic(r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

func containsSteganographic(s string) bool {
	for _, r := range s {
		if IsSteganographic(r) {
			return true
		}
	}
	return false
}
