package main

import (
	"os"
	"runtime/debug"

	"github.com/llehouerou/cadence/cmd"
)

func main() {
	if err := cmd.RootCmd(appVersion()).Execute(); err != nil {
		os.Exit(1)
	}
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "unknown"
	}
	return bi.Main.Version
}
