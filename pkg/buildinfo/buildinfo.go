// Package buildinfo exposes version information injected at build time:
//
//	-X github.com/ggs134/meeting-transcript-analyzer/pkg/buildinfo.Version=v0.3.0
//	-X github.com/ggs134/meeting-transcript-analyzer/pkg/buildinfo.Commit=b806fe7
//	-X github.com/ggs134/meeting-transcript-analyzer/pkg/buildinfo.BuildTime=2025-01-08T10:30:00Z
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the version report printed by `mta version`.
type Info struct {
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// Get returns build info for the named binary. When no commit was injected,
// the VCS revision recorded by the Go toolchain is used if present.
func Get(name string) Info {
	info := Info{
		Name:      name,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	if info.Commit == "unknown" {
		if rev := vcsRevision(); rev != "" {
			info.Commit = rev
		}
	}
	return info
}

// String returns a one-liner like "v0.3.0 (b806fe7, 2025-01-08T10:30:00Z)".
func String() string {
	return Version + " (" + Commit + ", " + BuildTime + ")"
}

func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return ""
}
