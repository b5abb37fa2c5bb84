package out

import "context"

// SourceControl wraps the working tree and tag operations of the repository.
type SourceControl interface {
	CurrentBranch(ctx context.Context) (string, error)
	HasUncommittedChanges(ctx context.Context) (bool, error)
	HeadCommit(ctx context.Context) (string, error)
	TagExists(ctx context.Context, name string) (bool, error)
	// CreateTag creates an annotated tag at HEAD and never overwrites an
	// existing one.
	CreateTag(ctx context.Context, name, message string) error
	PushTag(ctx context.Context, name string) error
	CommitFiles(ctx context.Context, message string, paths ...string) (string, error)
}
