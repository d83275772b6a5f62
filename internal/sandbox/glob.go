package sandbox

import "strings"

// matchGlob reports whether name matches pattern, where pattern supports '*'
// (match any run of characters, including none) and '?' (match exactly one
// character). Matching is case-insensitive and operates on forward-slash
// normalized paths; no separator-awareness is needed because deny patterns
// in this package are always matched against the full canonical path.
//
// No glob library appears anywhere in the teacher's or the retrieved
// pack's go.mod, so this mirrors the hand-rolled-parser instinct already
// present in the corpus rather than introducing a new dependency.
func matchGlob(pattern, name string) bool {
	pattern = strings.ToLower(pattern)
	name = strings.ToLower(name)
	return globMatch(pattern, name)
}

func globMatch(pattern, name string) bool {
	// Classic DP-free recursive glob matcher with memo-free backtracking,
	// sized for short deny patterns (a few dozen characters).
	var match func(p, n string) bool
	match = func(p, n string) bool {
		for len(p) > 0 {
			switch p[0] {
			case '*':
				// Collapse consecutive stars.
				for len(p) > 0 && p[0] == '*' {
					p = p[1:]
				}
				if len(p) == 0 {
					return true
				}
				for i := 0; i <= len(n); i++ {
					if match(p, n[i:]) {
						return true
					}
				}
				return false
			case '?':
				if len(n) == 0 {
					return false
				}
				p = p[1:]
				n = n[1:]
			default:
				if len(n) == 0 || p[0] != n[0] {
					return false
				}
				p = p[1:]
				n = n[1:]
			}
		}
		return len(n) == 0
	}
	return match(pattern, name)
}

// matchAnyGlob reports whether name matches any of patterns, or contains a
// substring match when the pattern has no wildcard (so "env" matches
// ".env.local" the way a simple substring deny-list would).
func matchAnyGlob(patterns []string, path string) (string, bool) {
	lowered := strings.ToLower(path)
	for _, p := range patterns {
		lp := strings.ToLower(p)
		if strings.ContainsAny(lp, "*?") {
			if matchGlob(lp, lowered) {
				return p, true
			}
			// Also allow the pattern to match against just the base name,
			// since most deny patterns describe a file's name or
			// extension, not a full path.
			if matchGlob(lp, pathBase(lowered)) {
				return p, true
			}
			continue
		}
		if strings.Contains(lowered, lp) {
			return p, true
		}
	}
	return "", false
}

func pathBase(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return p
	}
	return p[i+1:]
}
