package version

import (
	"fmt"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at build time with -ldflags "-X".
var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

type Info struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
}

func (i Info) String() string {
	return fmt.Sprintf("speech2symbol v%s (commit %s, built %s, %s)", i.Version, i.Commit, i.Date, i.GoVersion)
}

// Resolve returns Version, suffixed with the git description when running
// from a checkout that is not on a release tag.
func Resolve() string {
	return resolveVersion(Version, runGit)
}

// Current reports the resolved version together with build metadata. The
// commit falls back to the VCS revision embedded by the Go toolchain.
func Current() Info {
	info := Info{Version: Resolve(), Commit: Commit, Date: Date, GoVersion: runtime.Version()}
	if info.Commit != "unknown" {
		return info
	}
	if build, ok := debug.ReadBuildInfo(); ok {
		info.Commit = buildSetting(build, "vcs.revision", info.Commit)
		info.Date = buildSetting(build, "vcs.time", info.Date)
	}
	return info
}

func buildSetting(build *debug.BuildInfo, key, fallback string) string {
	for _, setting := range build.Settings {
		if setting.Key == key && setting.Value != "" {
			return setting.Value
		}
	}
	return fallback
}

type gitFunc func(args ...string) (string, error)

func resolveVersion(base string, git gitFunc) string {
	if base == "" {
		base = "0.0.0"
	}
	if suffix := gitSuffix(base, git); suffix != "" {
		return base + "-" + suffix
	}
	return base
}

func gitSuffix(base string, git gitFunc) string {
	if _, err := git("rev-parse", "--git-dir"); err != nil {
		return ""
	}
	if _, err := git("describe", "--tags", "--exact-match"); err == nil {
		return ""
	}

	desc, err := git("describe", "--tags", "--dirty", "--always")
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(desc, "v"+base+"-")
}

func runGit(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
