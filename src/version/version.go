package version

import (
	"runtime/debug"
)

// set with -ldflags "-X capyviz/src/version.Version=..."
var (
	Commit         = "unknown"
	Version        = "unknown"
	BuildTimestamp = "unknown"
)

type BuildInfo struct {
	Version        string            `json:"version"`
	Commit         string            `json:"commit"`
	BuildTimestamp string            `json:"build_timestamp"`
	GoVersion      string            `json:"go_version,omitempty"`
	Settings       map[string]string `json:"settings,omitempty"`
}

func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:        Version,
		Commit:         Commit,
		BuildTimestamp: BuildTimestamp,
		Settings:       make(map[string]string),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			info.Settings[s.Key] = s.Value
		}
		// fall back to the VCS stamp when no commit was linked in
		if info.Commit == "unknown" {
			if revision, ok := info.Settings["vcs.revision"]; ok {
				info.Commit = revision
			}
		}
	}

	return info
}
