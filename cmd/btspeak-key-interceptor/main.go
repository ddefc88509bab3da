// SPDX-License-Identifier: MIT

package main

import (
	"os"

	"github.com/emassey0135/btspeak-key-interceptor/internal/config"
	"github.com/emassey0135/btspeak-key-interceptor/internal/logger"
	"github.com/emassey0135/btspeak-key-interceptor/internal/runtime"
)

// Application entry point. There is no CLI, no config file, and no
// environment variable to parse: the interceptor always grabs the same
// physical device, creates the same synthetic device, and binds the same
// loopback RPC address, so startup is just Initialize() → RunAndWait().
func main() {
	os.Exit(run())
}

func run() int {
	appLogger := logger.NewDefaultLogger(logger.InfoLevel)

	app := runtime.New(config.Default(), appLogger)

	if err := app.Initialize(); err != nil {
		appLogger.Error("Failed to initialize: %v", err)
		return 1
	}
	if err := app.RunAndWait(); err != nil {
		appLogger.Error("Runtime error: %v", err)
		return 1
	}
	return 0
}
