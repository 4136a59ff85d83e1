package version_test

import (
	"testing"

	"github.com/bdobrica/Koyomi/common/version"
)

func TestUserAgent(t *testing.T) {
	oldVersion, oldCommit := version.Version, version.GitCommit
	t.Cleanup(func() { version.Version, version.GitCommit = oldVersion, oldCommit })

	tests := []struct {
		version, commit string
		want            string
	}{
		{"v0.3.1", "a1b2c3d", "Koyomi/v0.3.1 (a1b2c3d)"},
		{"v0.3.1", "unknown", "Koyomi/v0.3.1"},
		{"v0.0.0-dev", "", "Koyomi/v0.0.0-dev"},
	}
	for _, tt := range tests {
		version.Version, version.GitCommit = tt.version, tt.commit
		if got := version.UserAgent(); got != tt.want {
			t.Errorf("UserAgent() with %q/%q = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}

func TestInfo(t *testing.T) {
	oldVersion, oldCommit, oldBuild := version.Version, version.GitCommit, version.BuildTime
	t.Cleanup(func() { version.Version, version.GitCommit, version.BuildTime = oldVersion, oldCommit, oldBuild })

	version.Version, version.GitCommit, version.BuildTime = "v1.0.0", "abc", "2026-01-01"
	if got := version.Info(); got != "v1.0.0 (abc) built at 2026-01-01" {
		t.Errorf("Info() = %q", got)
	}
}
