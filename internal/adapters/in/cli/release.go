package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/shipit/internal/domain"
)

const releaseUsage = "shipit release <patch|minor|major>"

type releaseFlags struct {
	dryRun      bool
	yes         bool
	staging     bool
	continueAll bool
}

func newReleaseCmd(factory Factory, global *globalFlags) *cobra.Command {
	flags := &releaseFlags{}

	cmd := &cobra.Command{
		Use:   "release <patch|minor|major>",
		Short: "Bump, gate, build, publish and tag a release",
		Long: `Bumps the manifest version, runs the quality gates, builds the source and
binary distributions, publishes them and tags the release commit.

Nothing is published unless every required gate passed and both
distributions were built. The publish step asks for confirmation.

Exit codes:
  0  released (or dry run reached the build)
  1  gate, build or precondition failure
  2  publish failure
  3  tag failure, the artifact is already published

Examples:
  shipit release patch --dry-run
  shipit release minor
  shipit release major --staging --yes`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return usageError(exitUsageRelease, releaseUsage)(cmd, err)
			}
			return nil
		},
		ValidArgs: []string{string(domain.BumpPatch), string(domain.BumpMinor), string(domain.BumpMajor)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd, factory, global, flags, args[0])
		},
	}

	cmd.SetFlagErrorFunc(usageError(exitUsageRelease, releaseUsage))

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Run gates and build without publishing or tagging")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Publish without asking for confirmation")
	cmd.Flags().BoolVar(&flags.staging, "staging", false, "Publish to the staging registry")
	cmd.Flags().BoolVar(&flags.continueAll, "continue", false, "Run every gate even after a required gate failed")

	return cmd
}

func runRelease(cmd *cobra.Command, factory Factory, global *globalFlags, flags *releaseFlags, rawBump string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	bump, err := domain.ParseBumpKind(rawBump)
	if err != nil {
		renderFailure(stderr, "", err)
		return &ExitError{Code: exitUsageRelease, Err: err}
	}

	svc, err := openServices(cmd, factory, global, selectConfirmer(flags.yes, cmd.InOrStdin(), stderr))
	if err != nil {
		renderFailure(stderr, "", err)
		return &ExitError{Code: releaseExitCode(err), Err: err}
	}
	defer func() { _ = svc.Close() }()

	req := domain.ReleaseRequest{
		Bump:   bump,
		DryRun: flags.dryRun,
		Target: domain.Production,
	}
	if flags.staging {
		req.Target = domain.Staging
	}
	if flags.continueAll {
		req.Mode = domain.Continue
	}

	rec, err := svc.Release.Release(cmd.Context(), req)
	if rec != nil && !rec.Version.IsZero() {
		renderRelease(stdout, rec)
	}
	if err != nil {
		state := ""
		if rec != nil {
			state = string(rec.State)
		}
		renderFailure(stderr, state, err)
		return &ExitError{Code: releaseExitCode(err), Err: fmt.Errorf("release: %w", err)}
	}
	return nil
}
