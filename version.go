package main

import "runtime/debug"

// buildVersion is resolved from the build info embedded by the Go
// toolchain, falling back to "dev" for a plain `go run`/unreleased build.
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 { //nolint:mnd // short commit hash for display
				return s.Value[:12]
			}

			return s.Value
		}
	}

	return "dev"
}
