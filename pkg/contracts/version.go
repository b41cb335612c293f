// Package contracts holds the version of the tools and of the result
// bundle format they write.
package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the current version of the tools
	Version = "1.0.0"

	// BundleFormatVersion is written into every bundle's metadata. It
	// changes whenever bundle members are added, renamed or reshaped.
	BundleFormatVersion = "phi-bundle/1"
)

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version      string `json:"version"`
	BundleFormat string `json:"bundle_format"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BundleFormat: BundleFormatVersion,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
}

// GetFullVersionString returns a one-line version description
func GetFullVersionString(tool string) string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s v%s (bundle format %s, built: %s, commit: %s, go: %s, %s/%s)",
		tool, info.Version, info.BundleFormat, info.BuildTime, info.GitCommit,
		info.GoVersion, info.OS, info.Architecture)
}
