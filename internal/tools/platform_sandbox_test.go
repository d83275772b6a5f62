package tools

import "testing"

func TestCheckPlatformBlocklistInterpreterEscape(t *testing.T) {
	err := checkPlatformBlocklist("powershell -Command Get-Process", true)
	if err == nil {
		t.Fatalf("expected interpreter escape to be blocked")
	}
	if _, ok := err.(ErrSandboxBlocked); !ok {
		t.Fatalf("expected ErrSandboxBlocked, got %T", err)
	}
}

func TestCheckPlatformBlocklistNetworkDeniedByDefault(t *testing.T) {
	if err := checkPlatformBlocklist("curl.exe https://example.com", false); err == nil {
		t.Fatalf("expected network token to be blocked when allowNetwork is false")
	}
	if err := checkPlatformBlocklist("curl.exe https://example.com", true); err != nil {
		t.Fatalf("expected network token to pass when allowNetwork is true: %v", err)
	}
}

func TestCheckPlatformBlocklistAllowsOrdinaryCommands(t *testing.T) {
	if err := checkPlatformBlocklist("go test ./...", false); err != nil {
		t.Fatalf("expected ordinary command to pass, got %v", err)
	}
}

func TestCheckPlatformBlocklistNormalizesFullwidthTokens(t *testing.T) {
	// Fullwidth "powershell" normalizes to ASCII under NFKC, so it must not
	// slip past the blocklist just because it looks different byte-for-byte.
	fullwidth := "ｐｏｗｅｒｓｈｅｌｌ -Command Get-Process"
	if err := checkPlatformBlocklist(fullwidth, true); err == nil {
		t.Fatalf("expected fullwidth interpreter token to be blocked")
	}
}
