package llm

import "context"

// Purpose labels why a request was made. It is recorded with every event.
type Purpose string

const (
	PurposeExtraction   Purpose = "concept-extraction"
	PurposeVerification Purpose = "explanation-verify"
	PurposeUnknown      Purpose = "unknown"
)

type purposeKey struct{}

// WithPurpose attaches a purpose label to the context.
func WithPurpose(ctx context.Context, p Purpose) context.Context {
	return context.WithValue(ctx, purposeKey{}, p)
}

// PurposeFrom returns the purpose attached to ctx, or PurposeUnknown.
func PurposeFrom(ctx context.Context) Purpose {
	if p, ok := ctx.Value(purposeKey{}).(Purpose); ok && p != "" {
		return p
	}
	return PurposeUnknown
}
