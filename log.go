package sitepool

import (
	"log/slog"

	"github.com/giantswarm/sitepool/internal/core"
)

// SetLogger routes the pool's log output through l. Passing nil restores the
// default, which is slog.Default tagged with component=sitepool. Safe to
// call at any time, including while pools are running.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
