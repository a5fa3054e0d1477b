package version

import "runtime/debug"

var version = "dev"

// Version reports the module version: the ldflags-injected value when set,
// otherwise whatever the Go toolchain stamped into the build info.
func Version() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

// Set overrides the reported version; empty values are ignored.
func Set(v string) {
	if v != "" {
		version = v
	}
}
