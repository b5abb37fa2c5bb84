package domain

// ReleaseRequest holds the operator's choices for one release run.
type ReleaseRequest struct {
	Bump   BumpKind
	DryRun bool
	Target PublishTarget
	Mode   GateMode
}

// RollbackRequest holds the operator's choices for one rollback run. A nil
// To resolves to the previous stable version below From.
type RollbackRequest struct {
	From     Version
	To       *Version
	Reason   string
	Operator string
}
