// Package cli implements the CLI adapter for shipit.
// This package provides Cobra commands that delegate to the release and
// rollback services built by the app layer.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/bnema/shipit/internal/boundaries/in"
	"github.com/bnema/shipit/internal/boundaries/out"
	"github.com/bnema/shipit/pkg/version"
)

// Options are the global flag values handed to the service factory.
type Options struct {
	ConfigPath string
	LogLevel   string
	Confirmer  out.Confirmer
	Stderr     io.Writer
	// Activity wraps the tool runner to show progress; nil runs tools bare.
	Activity func(out.CommandRunner) out.CommandRunner
}

// Services are the use cases a command drives.
type Services struct {
	Release  in.ReleaseService
	Rollback in.RollbackService
	Close    func() error
}

// Factory builds the services once flags are parsed.
type Factory func(ctx context.Context, opts Options) (*Services, error)

type globalFlags struct {
	configPath string
	logLevel   string
}

// NewRootCmd creates the root command for the shipit CLI.
func NewRootCmd(factory Factory) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "shipit",
		Short: "shipit - release and rollback orchestration for Python packages",
		Long: `shipit releases a Python package behind quality gates and withdraws a bad
release again.

A release bumps the manifest version, runs the quality gates, builds the
source and binary distributions, publishes them and tags the commit.
A rollback removes a published version from the registry, tags the event
and files the incident documents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newReleaseCmd(factory, flags))
	rootCmd.AddCommand(newRollbackCmd(factory, flags))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// NewReleaseRootCmd creates the standalone release entry point.
func NewReleaseRootCmd(factory Factory) *cobra.Command {
	flags := &globalFlags{}
	return standalone(newReleaseCmd(factory, flags), flags)
}

// NewRollbackRootCmd creates the standalone rollback entry point.
func NewRollbackRootCmd(factory Factory) *cobra.Command {
	flags := &globalFlags{}
	return standalone(newRollbackCmd(factory, flags), flags)
}

// standalone turns a subcommand into a root command with its own copy of
// the global flags.
func standalone(cmd *cobra.Command, flags *globalFlags) *cobra.Command {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.Version = version.String()
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("shipit %s\n", version.Version())
			cmd.Printf("Commit: %s\n", version.Commit())
			cmd.Printf("Build Date: %s\n", version.BuildDate())
		},
	}
}

func openServices(cmd *cobra.Command, factory Factory, flags *globalFlags, confirmer out.Confirmer) (*Services, error) {
	svc, err := factory(cmd.Context(), Options{
		ConfigPath: flags.configPath,
		LogLevel:   flags.logLevel,
		Confirmer:  confirmer,
		Stderr:     cmd.ErrOrStderr(),
		Activity:   selectActivity(cmd.ErrOrStderr()),
	})
	if err != nil {
		return nil, err
	}
	if svc.Close == nil {
		svc.Close = func() error { return nil }
	}
	return svc, nil
}
