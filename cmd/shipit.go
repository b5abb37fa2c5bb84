// Package cmd holds the process entry logic shared by the shipit binaries.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/shipit/internal/adapters/in/cli"
	"github.com/bnema/shipit/internal/app"
	"github.com/bnema/shipit/pkg/version"
)

// ExecuteCLI runs the shipit binary with the release and rollback
// subcommands and exits with the command's exit code.
func ExecuteCLI(build, commit, date string) {
	version.Set(build, commit, date)
	os.Exit(run(cli.NewRootCmd(app.Services), os.Args[1:]))
}

// ExecuteRelease runs the standalone release binary.
func ExecuteRelease(build, commit, date string) {
	version.Set(build, commit, date)
	os.Exit(run(cli.NewReleaseRootCmd(app.Services), os.Args[1:]))
}

// ExecuteRollback runs the standalone rollback binary.
func ExecuteRollback(build, commit, date string) {
	version.Set(build, commit, date)
	os.Exit(run(cli.NewRollbackRootCmd(app.Services), os.Args[1:]))
}

// run executes root and maps the outcome to an exit code. An interrupt
// cancels the context of the running command.
func run(root *cobra.Command, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return cli.ExitOK
	}

	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		// errors cobra raises itself, such as unknown flags
		root.PrintErrln("Error:", err)
		root.PrintErrln("Run '" + root.CommandPath() + " --help' for usage.")
	}
	return cli.ExitCode(err)
}
