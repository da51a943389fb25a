package main

import (
	"os"

	"golang-overdue-service/cmd/overdue/cmd"
	"golang-overdue-service/pkg/errors"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
