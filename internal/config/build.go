package config

// Set at link time, for example:
//
//	go build -ldflags "-X fixmystreet/internal/config.version=1.4.0 \
//	    -X fixmystreet/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X fixmystreet/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// String renders the build as "version (commit, built time)".
func (b BuildInfo) String() string {
	return b.Version + " (" + b.Commit + ", built " + b.BuildTime + ")"
}
