package cli

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/bnema/shipit/internal/domain"
)

const rollbackUsage = "shipit rollback <from-version> [<to-version>]"

type rollbackFlags struct {
	list   bool
	yes    bool
	reason string
}

func newRollbackCmd(factory Factory, global *globalFlags) *cobra.Command {
	flags := &rollbackFlags{}

	cmd := &cobra.Command{
		Use:   "rollback <from-version> [<to-version>]",
		Short: "Withdraw a bad release",
		Long: `Removes a published version from the registry, creates a rollback tag,
files an incident issue and writes a user notice and a post-incident report.

Without <to-version> the previous stable version below <from-version> is
used. Every step is attempted even when an earlier one fails; steps that
need manual follow-up are listed at the end.

Exit codes:
  0  rollback finished, possibly with manual follow-ups
  1  aborted at confirmation
  2  fatal error before any change was made

Examples:
  shipit rollback --list
  shipit rollback 1.2.3
  shipit rollback 1.2.3 1.2.1 --reason "broken wheel on py3.12"`,
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.list {
				return nil
			}
			if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
				return usageError(exitUsageRollback, rollbackUsage)(cmd, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.list {
				return runRollbackList(cmd, factory, global)
			}
			return runRollback(cmd, factory, global, flags, args)
		},
	}

	// unknown or malformed flags are validation errors, not an abort
	cmd.SetFlagErrorFunc(usageError(exitUsageRollback, rollbackUsage))

	cmd.Flags().BoolVar(&flags.list, "list", false, "List the published versions and exit")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Roll back without asking for confirmation")
	cmd.Flags().StringVarP(&flags.reason, "reason", "r", "", "Why the release is withdrawn (goes into the incident documents)")

	return cmd
}

func runRollbackList(cmd *cobra.Command, factory Factory, global *globalFlags) error {
	stderr := cmd.ErrOrStderr()

	svc, err := openServices(cmd, factory, global, selectConfirmer(false, cmd.InOrStdin(), stderr))
	if err != nil {
		renderFailure(stderr, "", err)
		return &ExitError{Code: ExitRollbackFatal, Err: err}
	}
	defer func() { _ = svc.Close() }()

	idx, err := svc.Rollback.List(cmd.Context())
	if err != nil {
		renderFailure(stderr, "", err)
		return &ExitError{Code: ExitRollbackFatal, Err: err}
	}
	renderVersions(cmd.OutOrStdout(), idx)
	return nil
}

func runRollback(cmd *cobra.Command, factory Factory, global *globalFlags, flags *rollbackFlags, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	req, err := parseRollbackArgs(args)
	if err != nil {
		renderFailure(stderr, string(domain.RollbackRequested), err)
		return &ExitError{Code: ExitRollbackFatal, Err: err}
	}
	req.Reason = flags.reason
	req.Operator = operatorName()

	svc, err := openServices(cmd, factory, global, selectConfirmer(flags.yes, cmd.InOrStdin(), stderr))
	if err != nil {
		renderFailure(stderr, string(domain.RollbackRequested), err)
		return &ExitError{Code: ExitRollbackFatal, Err: err}
	}
	defer func() { _ = svc.Close() }()

	rec, err := svc.Rollback.Rollback(cmd.Context(), req)
	if err != nil {
		state := string(domain.RollbackRequested)
		if rec != nil {
			state = string(rec.State)
		}
		renderFailure(stderr, state, err)
		return &ExitError{Code: rollbackExitCode(err), Err: fmt.Errorf("rollback: %w", err)}
	}
	renderRollback(stdout, rec)
	return nil
}

func parseRollbackArgs(args []string) (domain.RollbackRequest, error) {
	from, err := domain.ParseVersion(args[0])
	if err != nil {
		return domain.RollbackRequest{}, domain.Validation("parse from-version", err, rollbackUsage)
	}
	req := domain.RollbackRequest{From: from}
	if len(args) > 1 {
		to, err := domain.ParseVersion(args[1])
		if err != nil {
			return domain.RollbackRequest{}, domain.Validation("parse to-version", err, rollbackUsage)
		}
		req.To = &to
	}
	return req, nil
}

// operatorName identifies who ran the rollback in its record.
func operatorName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
