package version

import (
	"strings"
	"testing"
)

func TestVersionDefault(t *testing.T) {
	if Version == "" {
		t.Fatal("Version should have a default value")
	}
	// color codes may wrap the digits, the marker must survive
	if !strings.Contains(Version, "-dev") {
		t.Fatalf("default Version %q should carry the -dev marker", Version)
	}
}

func TestLdflagsOverride(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	}()

	Version = "1.2.3"
	GitCommit = "abc123def456"
	BuildDate = "2026-08-24T10:30:00Z"

	if Version != "1.2.3" || GitCommit != "abc123def456" || BuildDate != "2026-08-24T10:30:00Z" {
		t.Fatalf("override failed: %q %q %q", Version, GitCommit, BuildDate)
	}
}
