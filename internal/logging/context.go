package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// Standard field names shared by every layer.
const (
	FieldLayer     = "layer"
	FieldUseCase   = "usecase"
	FieldAdapter   = "adapter"
	FieldComponent = "component"
	FieldAction    = "action"
	FieldPackage   = "package"
	FieldVersion   = "version"
	FieldTarget    = "target"
	FieldGate      = "gate"
	FieldState     = "state"
	FieldPath      = "path"
	FieldMethod    = "method"
	FieldURL       = "url"
	FieldStatus    = "status"
	FieldAttempt   = "attempt"
	FieldDuration  = "duration"
)

// WithCtx stores logger in ctx.
func WithCtx(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromCtx returns the logger carried by ctx, or a disabled logger.
func FromCtx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// CtxWithFields returns a context whose logger carries fields in addition
// to the ones already set.
func CtxWithFields(ctx context.Context, fields map[string]any) context.Context {
	logger := zerolog.Ctx(ctx).With().Fields(fields).Logger()
	return logger.WithContext(ctx)
}
