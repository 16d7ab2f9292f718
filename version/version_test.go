package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	return func() {
		Version = origVersion
		GitCommit = origCommit
		BuildTime = origBuildTime
	}
}

func TestUserAgent(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.4.2"

	if got := UserAgent(); got != "service-client/1.4.2" {
		t.Errorf("expected 'service-client/1.4.2', got %q", got)
	}
}

func TestUserAgentDev(t *testing.T) {
	defer saveAndRestore()()
	Version = "dev"

	if !strings.HasPrefix(UserAgent(), ClientName+"/") {
		t.Errorf("user agent should start with client name, got %q", UserAgent())
	}
}

func TestGetVersionInfoDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version = "dev"
	GitCommit = ""
	BuildTime = ""

	info := GetVersionInfo()
	if info == nil {
		t.Fatal("expected non-nil Info")
	}
	if info.Name != ClientName {
		t.Errorf("expected name %q, got %q", ClientName, info.Name)
	}
	if info.IsRelease {
		t.Error("dev should not be a release")
	}
}

func TestGetVersionInfoRelease(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	GitCommit = "abc1234"
	BuildTime = "2024-01-15T10:30:00Z"

	info := GetVersionInfo()
	if !info.IsRelease {
		t.Error("1.0.0 should be a release")
	}
	if info.GitCommit != "abc1234" {
		t.Errorf("expected 'abc1234', got %q", info.GitCommit)
	}
	if info.BuildTime != "2024-01-15T10:30:00Z" {
		t.Errorf("expected build time to be kept, got %q", info.BuildTime)
	}
}

func TestGetShortVersion(t *testing.T) {
	defer saveAndRestore()()
	Version = "2.0.0"
	GitCommit = "def5678"

	got := GetShortVersion()
	if !strings.HasPrefix(got, "2.0.0-def5678") {
		t.Errorf("expected prefix '2.0.0-def5678', got %q", got)
	}
}
