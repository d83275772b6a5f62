package sandbox

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/danielchristiancazares/forge-sub003/internal/sanitize"
)

// DefaultDeniedPatterns covers credential files, private keys, and VCS
// internals that a tool should never be allowed to read or write regardless
// of which roots are otherwise allowed.
var DefaultDeniedPatterns = []string{
	"*.pem", "*.key", "*.p12", "*.pfx",
	".env", ".env.*",
	"id_rsa", "id_rsa.*", "id_ed25519", "id_ed25519.*",
	"*.pgp", "*.gpg",
	"*.core", "*.dmp",
	".git/*",
	".aws/credentials", ".aws/config",
	".ssh/*",
}

// Sandbox validates that paths stay within a set of allowed roots and do
// not match a deny pattern.
type Sandbox struct {
	allowedRoots   []string
	deniedPatterns []string
	allowAbsolute  bool
}

// New builds a Sandbox. allowedRoots should already be absolute;
// deniedGlobPatterns are matched case-insensitively against the canonical
// path and its base name. When allowAbsolute is false, an absolute input
// path is only accepted if it can be rewritten relative to one of the
// allowed roots.
func New(allowedRoots, deniedGlobPatterns []string, allowAbsolute bool) *Sandbox {
	roots := make([]string, len(allowedRoots))
	for i, r := range allowedRoots {
		roots[i] = filepath.Clean(r)
	}
	return &Sandbox{
		allowedRoots:   roots,
		deniedPatterns: deniedGlobPatterns,
		allowAbsolute:  allowAbsolute,
	}
}

// IsPathDenied reports whether the canonical path matches one of the
// sandbox's deny patterns, returning the matching pattern for diagnostics.
func (s *Sandbox) IsPathDenied(path string) (string, bool) {
	return matchAnyGlob(s.deniedPatterns, filepath.ToSlash(path))
}

func hasUnsafeCharacters(raw string) bool {
	for _, r := range raw {
		if r < 0x20 && r != '\t' {
			return true
		}
		if r == 0x7F {
			return true
		}
		if sanitize.IsSteganographic(r) {
			return true
		}
	}
	return false
}

func hasTraversalComponent(raw string) bool {
	for _, part := range strings.Split(filepath.ToSlash(raw), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// hasAlternateDataStream detects a Windows NTFS ADS marker: a ':' appearing
// outside of a drive-letter prefix like "C:".
func hasAlternateDataStream(raw string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	s := raw
	if len(s) >= 2 && s[1] == ':' && isDriveLetter(s[0]) {
		s = s[2:]
	}
	return strings.ContainsRune(s, ':')
}

func isDriveLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// resolveAllowedRoot walks the allowed roots, returning an absolute path
// under the first root that contains raw (when raw is relative, it is
// joined against workingDir first and must still land under some root).
func (s *Sandbox) candidatePath(raw, workingDir string) (string, error) {
	if hasUnsafeCharacters(raw) {
		return "", ErrUnsafeCharacters
	}
	if hasTraversalComponent(raw) {
		return "", ErrPathTraversal
	}
	if hasAlternateDataStream(raw) {
		return "", ErrAlternateDataStream
	}

	if filepath.IsAbs(raw) {
		if s.allowAbsolute {
			return filepath.Clean(raw), nil
		}
		// Try to find the path under one of the allowed roots as-is.
		clean := filepath.Clean(raw)
		for _, root := range s.allowedRoots {
			if withinRoot(root, clean) {
				return clean, nil
			}
		}
		return "", ErrPathOutsideSandbox
	}

	return filepath.Clean(filepath.Join(workingDir, raw)), nil
}

func withinRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "..")
}

func (s *Sandbox) verifyContainment(canonical string) error {
	for _, root := range s.allowedRoots {
		if withinRoot(root, canonical) {
			return nil
		}
	}
	return ErrPathOutsideSandbox
}

// ResolvePath canonicalizes raw (resolving symlinks if the path already
// exists) and verifies it is contained in an allowed root and does not
// match a deny pattern. Use this for reads and for edits to existing files.
func (s *Sandbox) ResolvePath(raw, workingDir string) (string, error) {
	candidate, err := s.candidatePath(raw, workingDir)
	if err != nil {
		return "", err
	}

	canonical, err := canonicalizeExistingOrAncestor(candidate)
	if err != nil {
		return "", err
	}

	if err := s.verifyContainment(canonical); err != nil {
		return "", err
	}
	if pattern, denied := s.IsPathDenied(canonical); denied {
		return "", &DeniedPatternError{Pattern: pattern, Path: canonical}
	}
	return canonical, nil
}

// ResolvePathForCreate is like ResolvePath but does not require the path to
// exist yet; callers must still call ValidateCreatedParent immediately
// before the actual creation syscall to close the TOCTOU window.
func (s *Sandbox) ResolvePathForCreate(raw, workingDir string) (string, error) {
	return s.ResolvePath(raw, workingDir)
}

// ValidateCreatedParent re-walks the parent directory chain of path
// immediately before a create/write syscall, rejecting any symlink found
// along the way and reconfirming root containment. This closes the TOCTOU
// window between ResolvePathForCreate and the actual write.
func (s *Sandbox) ValidateCreatedParent(path string) error {
	parent := filepath.Dir(path)
	for {
		info, err := os.Lstat(parent)
		if err != nil {
			if os.IsNotExist(err) {
				next := filepath.Dir(parent)
				if next == parent {
					break
				}
				parent = next
				continue
			}
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return ErrSymlinkInParent
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}

	canonicalParent, err := canonicalizeExistingOrAncestor(filepath.Dir(path))
	if err != nil {
		return err
	}
	return s.verifyContainment(canonicalParent)
}

// canonicalizeExistingOrAncestor resolves symlinks for the longest existing
// prefix of path, then re-appends the remaining (not-yet-existing) tail
// unresolved.
func canonicalizeExistingOrAncestor(path string) (string, error) {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real, nil
	}

	tail := []string{}
	cur := path
	for {
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			full := real
			for i := len(tail) - 1; i >= 0; i-- {
				full = filepath.Join(full, tail[i])
			}
			return full, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path, nil // nothing exists; return as cleaned
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}

// DeniedPatternError reports which deny pattern matched a path.
type DeniedPatternError struct {
	Pattern string
	Path    string
}

func (e *DeniedPatternError) Error() string {
	return "sandbox: path " + e.Path + " matches denied pattern " + e.Pattern
}

func (e *DeniedPatternError) Unwrap() error { return ErrDeniedPatternMatched }
