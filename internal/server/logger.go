package server

import "github.com/sadlil/gologger"

// Logger is the operator log: start-up lines and accruals that need manual follow-up.
var Logger = gologger.GetLogger(gologger.CONSOLE, gologger.SimpleLog)

func SetLogger(fileLog string) {
	if fileLog == "" {
		Logger = gologger.GetLogger(gologger.CONSOLE, gologger.SimpleLog)
	} else {
		Logger = gologger.GetLogger(gologger.FILE, fileLog)
	}
	Logger.Info("Start program")
}
