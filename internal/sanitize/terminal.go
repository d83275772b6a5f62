package sanitize

import (
	"strings"

	"github.com/danielchristiancazares/forge-sub003/internal/format"
)

// SanitizeTerminalText strips C0/C1 control bytes, DEL, bidi controls, and
// ANSI escape sequences (CSI/OSC/DCS/PM/APC and the two-character escapes)
// from untrusted text before it is displayed, logged, or sent back to the
// model. \n and \t survive; \r and \b are first resolved into their visual
// effect by format.ProcessTerminalOutput so progress-bar-style output still
// reads correctly once collapsed to a single line.
func SanitizeTerminalText(input string) string {
	pre := format.ProcessTerminalOutput(input)
	if !needsEscapeStrip(pre) {
		return pre
	}

	var b strings.Builder
	b.Grow(len(pre))
	runes := []rune(pre)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == 0x1B { // ESC
			skip := escapeSequenceLen(runes[i:])
			if skip > 0 {
				i += skip - 1
				continue
			}
			continue // bare ESC with no recognizable sequence: drop it
		}

		if isC0C1OrDel(r) {
			if r == '\n' || r == '\t' {
				b.WriteRune(r)
			}
			continue
		}

		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeDisplayText is the full pipeline used anywhere untrusted text
// reaches a human or is persisted for later display: terminal-sanitize,
// then strip steganographic Unicode. Secret redaction is layered on top by
// Redactor.Redact, which itself calls this first (normalize before redact).
func SanitizeDisplayText(input string) string {
	return StripSteganographicChars(SanitizeTerminalText(input))
}

func needsEscapeStrip(s string) bool {
	for _, r := range s {
		if r == 0x1B || isC0C1OrDel(r) {
			return true
		}
	}
	return false
}

func isC0C1OrDel(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case r < 0x20:
		return true
	case r == 0x7F:
		return true
	case r >= 0x80 && r <= 0x9F:
		return true
	default:
		return false
	}
}

// escapeSequenceLen returns the number of runes (starting at runes[0] == ESC)
// that make up one escape sequence, or 0 if runes does not start with a
// recognizable sequence (caller drops the bare ESC in that case).
func escapeSequenceLen(runes []rune) int {
	if len(runes) < 2 {
		return 1
	}
	switch runes[1] {
	case '[': // CSI: ESC [ params... final (0x40-0x7E)
		for i := 2; i < len(runes); i++ {
			if runes[i] >= 0x40 && runes[i] <= 0x7E {
				return i + 1
			}
		}
		return len(runes)
	case ']', 'P', '^', '_': // OSC / DCS / PM / APC: terminated by BEL or ST (ESC \)
		for i := 2; i < len(runes); i++ {
			if runes[i] == 0x07 {
				return i + 1
			}
			if runes[i] == 0x1B && i+1 < len(runes) && runes[i+1] == '\\' {
				return i + 2
			}
		}
		return len(runes)
	default:
		// Two-character escape (e.g. ESC c, ESC =, ESC >).
		return 2
	}
}
