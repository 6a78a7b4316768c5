// Package autoload initializes the global zerolog logger from LOG_* env vars
// when imported for side effects.
package autoload

import (
	configx "github.com/tanpawarit/Chative-Scheduling-Assistant/pkg/config"
	logx "github.com/tanpawarit/Chative-Scheduling-Assistant/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
