package config

import "fmt"

// Build information, set through -ldflags "-X" at release time
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo returns the version line printed by `trebdao version`
func BuildInfo() string {
	return fmt.Sprintf("trebdao version %s (commit %s, built %s)", Version, Commit, Date)
}
