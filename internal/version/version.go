// Package version holds build metadata injected via ldflags:
//
//	-X github.com/kailas-cloud/vexplain/internal/version.Version=v1.2.0
package version

import (
	"fmt"

	"go.uber.org/zap"
)

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build metadata as printed by `vexplain version`.
func String() string {
	return fmt.Sprintf("vexplain %s (commit %s, built %s)", Version, Commit, Date)
}

// Fields returns the build metadata as log fields.
func Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("built", Date),
	}
}
