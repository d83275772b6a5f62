package tools

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// interpreterEscapeTokens are command names that hand control to another
// interpreter, defeating any wrapping applied to the outer command.
var interpreterEscapeTokens = []string{
	"powershell", "pwsh", "cmd", "wsl", "bash",
	"python", "python3", "node", "perl", "ruby", "php",
	"rundll32", "mshta", "regsvr32", "cscript", "wscript",
}

// processEscapeTokens spawn a new process outside the sandboxed one.
var processEscapeTokens = []string{
	"start-process", "cmd /c", " -c ", " -e ", " -r ",
}

// networkTokens are blocked only when network access is disabled for the
// command (the common case for untrusted/auto-approved commands).
var networkTokens = []string{
	"invoke-webrequest", "curl.exe", "wget.exe", "nslookup",
	"resolve-dnsname", "certutil", "ssh.exe", "bitsadmin", "http://", "https://",
}

// ErrSandboxBlocked is returned when a command contains a token the
// platform sandbox denies outright.
type ErrSandboxBlocked struct {
	Token string
}

func (e ErrSandboxBlocked) Error() string {
	return fmt.Sprintf("platform sandbox: command contains blocked token %q", e.Token)
}

// normalizeForTokenMatch NFKC-normalizes and lowercases text before token
// matching, so a visually-identical but differently-encoded token (e.g. a
// fullwidth or combining-form variant) can't slip past a literal string
// compare.
func normalizeForTokenMatch(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

func containsBlockedToken(normalizedCmd string, tokens []string) (string, bool) {
	for _, t := range tokens {
		if strings.Contains(normalizedCmd, t) {
			return t, true
		}
	}
	return "", false
}

// checkPlatformBlocklist rejects interpreter-escape and process-escape
// tokens unconditionally, and network-fetch tokens when allowNetwork is
// false, matching entirely on NFKC-normalized, lowercased text so a
// differently-encoded but visually identical token can't slip through.
func checkPlatformBlocklist(cmd string, allowNetwork bool) error {
	normalized := normalizeForTokenMatch(cmd)

	if tok, found := containsBlockedToken(normalized, interpreterEscapeTokens); found {
		return ErrSandboxBlocked{Token: tok}
	}
	if tok, found := containsBlockedToken(normalized, processEscapeTokens); found {
		return ErrSandboxBlocked{Token: tok}
	}
	if !allowNetwork {
		if tok, found := containsBlockedToken(normalized, networkTokens); found {
			return ErrSandboxBlocked{Token: tok}
		}
	}
	return nil
}
