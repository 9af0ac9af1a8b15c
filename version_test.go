package layercache

import (
	"strings"
	"testing"
)

func TestGetVersionInfo(t *testing.T) {
	versionInfo := GetVersionInfo()

	if versionInfo.Version == "" {
		t.Error("Version should not be empty")
	}

	if versionInfo.Version != Version {
		t.Errorf("Expected version %s, got %s", Version, versionInfo.Version)
	}

	if !strings.HasPrefix(versionInfo.GoVersion, "go") {
		t.Errorf("Expected a go runtime version, got %s", versionInfo.GoVersion)
	}
}

func TestVersionConstant(t *testing.T) {
	if Version == "" {
		t.Error("Version constant should not be empty")
	}

	// Version should follow semantic versioning format (basic check)
	if !strings.HasPrefix(Version, "v") {
		t.Errorf("Version %s should carry a 'v' prefix", Version)
	}
	if len(Version) < 6 {
		t.Errorf("Version %s seems too short, expected format like 'v0.1.0'", Version)
	}
}
