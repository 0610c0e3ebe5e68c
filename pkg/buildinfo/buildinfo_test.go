package buildinfo

import (
	"encoding/json"
	"runtime"
	"testing"
)

func TestGet_ReturnsCorrectDefaults(t *testing.T) {
	info := Get("test-svc")

	if info.ServiceName != "test-svc" {
		t.Errorf("expected ServiceName='test-svc', got %q", info.ServiceName)
	}
	if info.Version != "dev" {
		t.Errorf("expected Version='dev', got %q", info.Version)
	}
	if info.Commit == "" {
		t.Error("expected Commit to be non-empty")
	}
	if info.BuildTime != "unknown" {
		t.Errorf("expected BuildTime='unknown', got %q", info.BuildTime)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("expected GoVersion=%q, got %q", runtime.Version(), info.GoVersion)
	}
	if info.Features == nil || len(info.Features) != 0 {
		t.Errorf("expected empty non-nil features, got %v", info.Features)
	}
}

func TestGet_FeaturesSorted(t *testing.T) {
	in := []string{"transcription", "embedding_cache", "report_store"}
	info := Get("serve", in...)

	want := []string{"embedding_cache", "report_store", "transcription"}
	for i, f := range want {
		if info.Features[i] != f {
			t.Errorf("feature %d: expected %q, got %q", i, f, info.Features[i])
		}
	}
	if in[0] != "transcription" {
		t.Error("Get must not reorder the caller's slice")
	}
}

func TestString_CustomValues(t *testing.T) {
	origVersion := Version
	origCommit := Commit
	origBuildTime := BuildTime
	defer func() {
		Version = origVersion
		Commit = origCommit
		BuildTime = origBuildTime
	}()

	Version = "v1.2.3"
	Commit = "abc123d"
	BuildTime = "2026-02-07T10:30:00Z"

	result := String()
	expected := "v1.2.3 (abc123d, 2026-02-07T10:30:00Z)"

	if result != expected {
		t.Errorf("expected String()=%q, got %q", expected, result)
	}
}

func TestInfo_JSONSerialization(t *testing.T) {
	info := Info{
		ServiceName: "serve",
		Version:     "v1.0.0",
		Commit:      "abcd1234",
		BuildTime:   "2026-01-01T00:00:00Z",
		GoVersion:   "go1.24.0",
		Features:    []string{"report_store"},
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("failed to marshal Info: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}

	for _, key := range []string{"service_name", "version", "commit", "build_time", "go_version", "features"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q in JSON output", key)
		}
	}
	if len(decoded) != 6 {
		t.Errorf("expected 6 keys in JSON, got %d", len(decoded))
	}
}
