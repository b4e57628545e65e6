package reminder

import "remindbot/pkg/logx"

func nopLogger() logx.Logger { return logx.Nop() }
