// Package autoload initializes the global logger from the environment
// as a side effect of being imported.
package autoload

import (
	configx "bookline/pkg/config"
	logx "bookline/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
