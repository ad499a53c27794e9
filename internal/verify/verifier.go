// Package verify provides optional sigstore signature verification for
// downloaded provider artifacts. The ensure stage calls the pipeline's
// Verifier after the download and its checksum check; the pipeline uses a
// no-op Verifier unless its caller supplies another, and no provider
// manifest field selects one.
package verify

import "context"

// Artifact identifies a downloaded file subject to signature verification.
type Artifact struct {
	Runtime string // runtime/tool name, e.g. "node"
	Version string // resolved version, e.g. "20.11.0"
	Path    string // local path to the downloaded artifact
}

// Result is the verification outcome for a single artifact.
type Result struct {
	Artifact   Artifact
	Verified   bool
	Skipped    bool
	SkipReason string
}

// Verifier checks artifact signatures before an artifact is trusted and
// placed into the store.
type Verifier interface {
	// Verify checks signatures for the given artifacts and returns one
	// Result per artifact, in order.
	Verify(ctx context.Context, artifacts []Artifact) ([]Result, error)
}
