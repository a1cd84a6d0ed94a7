package common

import (
	"os"
	"path/filepath"
	"testing"
)

func resetVersionVars(t *testing.T) {
	t.Helper()
	origVersion, origBuild, origCommit := Version, Build, GitCommit
	t.Cleanup(func() {
		Version, Build, GitCommit = origVersion, origBuild, origCommit
	})
	Version, Build, GitCommit = "dev", "unknown", "unknown"
}

func writeVersionFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".version")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadVersionFile_FillsDefaults(t *testing.T) {
	resetVersionVars(t)

	path := writeVersionFile(t, `
# build metadata
version: 1.2.3
build: 2026-08-29T10:00:00Z
commit: abc1234
`)
	loadVersionFile(path)

	if Version != "1.2.3" {
		t.Errorf("Version = %q, want %q", Version, "1.2.3")
	}
	if Build != "2026-08-29T10:00:00Z" {
		t.Errorf("Build = %q, want %q", Build, "2026-08-29T10:00:00Z")
	}
	if GitCommit != "abc1234" {
		t.Errorf("GitCommit = %q, want %q", GitCommit, "abc1234")
	}
}

func TestLoadVersionFile_LdflagsTakePrecedence(t *testing.T) {
	resetVersionVars(t)
	Version = "2.0.0"
	GitCommit = "deadbee"

	path := writeVersionFile(t, "version: 1.2.3\ncommit: abc1234\nbuild: b1\n")
	loadVersionFile(path)

	if Version != "2.0.0" {
		t.Errorf("Version = %q, ldflags value should win over file", Version)
	}
	if GitCommit != "deadbee" {
		t.Errorf("GitCommit = %q, ldflags value should win over file", GitCommit)
	}
	if Build != "b1" {
		t.Errorf("Build = %q, default should be filled from file", Build)
	}
}

func TestLoadVersionFile_MissingFileIsNoop(t *testing.T) {
	resetVersionVars(t)

	loadVersionFile(filepath.Join(t.TempDir(), "absent"))

	if Version != "dev" || Build != "unknown" || GitCommit != "unknown" {
		t.Errorf("missing file changed version info: %s %s %s", Version, Build, GitCommit)
	}
}

func TestGetFullVersion(t *testing.T) {
	resetVersionVars(t)
	Version, Build, GitCommit = "1.2.3", "b42", "abc1234"

	want := "1.2.3 (build b42, commit abc1234)"
	if got := GetFullVersion(); got != want {
		t.Errorf("GetFullVersion() = %q, want %q", got, want)
	}
}
