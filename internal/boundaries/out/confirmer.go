package out

import "context"

// Confirmer asks the operator a yes/no question and blocks until answered.
type Confirmer interface {
	Confirm(ctx context.Context, question, detail string) (bool, error)
}
