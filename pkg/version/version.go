// Package version reports build metadata, set with -ldflags or read from
// the build info embedded by the go toolchain.
package version

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	GitSource   string
	GitTag      string
	GitBranch   string
	GitHash     string
	GoBuildTime string
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Info describes a build of an executable
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Compiler  string `json:"compiler"`
	Source    string `json:"source,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Hash      string `json:"hash,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Version returns the git tag, the branch, the short revision, or "dev"
func Version() string {
	return versionOf(GitTag, GitBranch, buildSettings())
}

// Get returns the build metadata for an executable name. Values set with
// -ldflags take precedence over the embedded build info.
func Get(name string) Info {
	settings := buildSettings()
	info := Info{
		Name:      name,
		Version:   versionOf(GitTag, GitBranch, settings),
		Compiler:  runtime.Version(),
		Source:    GitSource,
		Tag:       GitTag,
		Branch:    GitBranch,
		Hash:      first(GitHash, settings["vcs.revision"]),
		BuildTime: first(GoBuildTime, settings["vcs.time"]),
		Modified:  settings["vcs.modified"] == "true",
	}
	if info.Source == "" {
		info.Source = settings["path"]
	}
	if goos, goarch := settings["GOOS"], settings["GOARCH"]; goos != "" && goarch != "" {
		info.Platform = goos + "/" + goarch
	}
	return info
}

// JSON returns the indented build metadata for an executable name
func JSON(name string) []byte {
	data, err := json.MarshalIndent(Get(name), "", "  ")
	if err != nil {
		panic(err)
	}
	return data
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func versionOf(tag, branch string, settings map[string]string) string {
	revision := settings["vcs.revision"]
	if len(revision) > 12 {
		revision = revision[:12]
	}
	return first(tag, branch, revision, "dev")
}

// buildSettings returns the embedded build settings, with the main module
// path under "path"
func buildSettings() map[string]string {
	settings := make(map[string]string)
	if info, ok := debug.ReadBuildInfo(); ok {
		settings["path"] = info.Main.Path
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}
	}
	return settings
}

func first(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
