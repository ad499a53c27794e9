package verify

import "context"

// noopVerifier is a Verifier that skips all verification.
// Used when signature verification is disabled (e.g. --no-verify-signatures,
// or a provider manifest that does not declare a signed-artifact source).
type noopVerifier struct {
	reason string
}

// NewNoopVerifier creates a Verifier that skips all verification with the given reason.
func NewNoopVerifier(reason string) Verifier {
	return &noopVerifier{reason: reason}
}

// Verify returns a skipped Result for each artifact.
func (v *noopVerifier) Verify(_ context.Context, artifacts []Artifact) ([]Result, error) {
	results := make([]Result, len(artifacts))
	for i, a := range artifacts {
		results[i] = Result{
			Artifact:   a,
			Skipped:    true,
			SkipReason: v.reason,
		}
	}
	return results, nil
}
