// Package main is the entry point for the pgbranch CLI application.
// pgbranch keeps a PostgreSQL database branch in sync with the current
// git branch.
package main

import (
	"fmt"
	"os"

	"github.com/pgbranch/pgbranch/internal/cmd"
	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
)

// Version information - set via ldflags during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := cmd.NewRootCmd(version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, apperrors.FormatError(err))
		os.Exit(apperrors.GetExitCode(err))
	}
}
