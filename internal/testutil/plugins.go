// Package testutil provides fixtures shared by package tests: throwaway plugin
// executables written as POSIX shell scripts.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// RequireShell skips the test on platforms without /bin/sh.
func RequireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script plugins require a POSIX shell")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

// WritePlugin writes an executable shell script named name into dir. body is
// the script without the shebang line. It returns the script path.
func WritePlugin(t *testing.T, dir, name, body string) string {
	t.Helper()
	RequireShell(t)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create plugin dir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write plugin %s: %v", name, err)
	}
	return path
}

// OnHook wraps script so it only runs for the given hook; every other hook
// exits zero with empty output.
func OnHook(hook, script string) string {
	return "if [ \"$1\" != \"" + hook + "\" ]; then exit 0; fi\n" + script
}

// WriteFile creates parent directories and writes content to dir/rel.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
