// Package buildinfo reports the version of the focusflow binary.
package buildinfo

import (
	"encoding/json"
	"net/http"
	"runtime"
	"runtime/debug"
	"sort"
)

// These vars are set at build time via ldflags:
// -X github.com/otherjamesbrown/focusflow/pkg/buildinfo.Version=v0.3.0
// -X github.com/otherjamesbrown/focusflow/pkg/buildinfo.Commit=b806fe7
// -X github.com/otherjamesbrown/focusflow/pkg/buildinfo.BuildTime=2026-02-07T10:30:00Z
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info holds build information for a running command.
type Info struct {
	ServiceName string   `json:"service_name" yaml:"service_name"`
	Version     string   `json:"version" yaml:"version"`
	Commit      string   `json:"commit" yaml:"commit"`
	BuildTime   string   `json:"build_time" yaml:"build_time"`
	GoVersion   string   `json:"go_version" yaml:"go_version"`
	Features    []string `json:"features" yaml:"features"`
}

// Get returns build info for the named command. features lists the optional
// integrations that are enabled (e.g. "transcription", "report_store").
// When Commit was not set by ldflags the VCS revision recorded by the Go
// toolchain is used.
func Get(serviceName string, features ...string) Info {
	f := append([]string{}, features...)
	sort.Strings(f)
	return Info{
		ServiceName: serviceName,
		Version:     Version,
		Commit:      commit(),
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
		Features:    f,
	}
}

func commit() string {
	if Commit != "unknown" {
		return Commit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return Commit
}

// String returns a human-readable one-liner like "v0.3.0 (b806fe7, 2026-02-07T10:30:00Z)"
func String() string {
	return Version + " (" + commit() + ", " + BuildTime + ")"
}

// Handler returns an HTTP handler that responds with build info JSON.
func Handler(serviceName string, features ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := Get(serviceName, features...)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	}
}
