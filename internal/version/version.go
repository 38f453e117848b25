// Package version holds build-time version information for modpatch.
package version

// Overridden at build time:
// go build -ldflags "-X modpatch/internal/version.Version=0.4.0 -X modpatch/internal/version.Commit=abc123"
var (
	Version   = "0.3.1"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with an abbreviated commit when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line form printed by `modpatch version`.
func Full() string {
	return "modpatch " + Info() + "\n" +
		"commit: " + Commit + "\n" +
		"built:  " + BuildDate
}
