package main

import (
	"github.com/scholargraph/backend/internal/server"
	"github.com/scholargraph/backend/internal/util"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
