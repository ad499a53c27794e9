package verify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/sigstore/sigstore-go/pkg/bundle"
	"github.com/sigstore/sigstore-go/pkg/root"
	"github.com/sigstore/sigstore-go/pkg/tuf"
	sgverify "github.com/sigstore/sigstore-go/pkg/verify"
)

// githubActionsOIDCIssuer is the OIDC issuer used by GitHub Actions keyless signing.
const githubActionsOIDCIssuer = "https://token.actions.githubusercontent.com"

// bundleSuffix is appended to an artifact's path to find its sidecar
// sigstore bundle, following the convention used by `cosign sign-blob
// --bundle` and `gh attestation`.
const bundleSuffix = ".sigstore.json"

var _ Verifier = (*SigstoreVerifier)(nil)

// SigstoreVerifier verifies a sidecar sigstore bundle against a downloaded
// artifact using keyless verification against the public-good Sigstore
// trusted root (Fulcio + Rekor). The "owner/repo" passed to
// NewSigstoreVerifier becomes the expected GitHub Actions workflow identity
// pattern. No provider manifest field selects this verifier; it is used
// only where a caller constructs it and passes it to the pipeline.
type SigstoreVerifier struct {
	// identitySANRegex matches the expected Fulcio certificate SAN, e.g.
	// `^https://github\.com/nodejs/node/`.
	identitySANRegex string

	trustedRootOnce sync.Once
	trustedRoot     *root.LiveTrustedRoot
	trustedRootErr  error
}

// NewSigstoreVerifier creates a verifier that trusts signatures produced by
// the named repository's GitHub Actions workflows (e.g. "nodejs/node").
func NewSigstoreVerifier(ownerRepo string) *SigstoreVerifier {
	return &SigstoreVerifier{
		identitySANRegex: fmt.Sprintf(`^https://github\.com/%s/`, ownerRepo),
	}
}

// Verify checks the sidecar sigstore bundle for each artifact. Artifacts
// without a bundle file are skipped (soft-fail); a provider may be migrating
// to signed releases and unsigned older versions must still install.
func (v *SigstoreVerifier) Verify(_ context.Context, artifacts []Artifact) ([]Result, error) {
	results := make([]Result, 0, len(artifacts))
	for _, a := range artifacts {
		results = append(results, v.verifyOne(a))
	}
	return results, nil
}

func (v *SigstoreVerifier) verifyOne(a Artifact) Result {
	bundlePath := a.Path + bundleSuffix
	bundleBytes, err := os.ReadFile(bundlePath)
	if err != nil {
		slog.Warn("sigstore verification skipped: no bundle found",
			"runtime", a.Runtime, "version", a.Version, "bundle", bundlePath, "error", err)
		return Result{Artifact: a, Skipped: true, SkipReason: fmt.Sprintf("no sigstore bundle: %v", err)}
	}

	b, err := bundle.LoadJSON(bundleBytes)
	if err != nil {
		slog.Warn("sigstore verification skipped: invalid bundle",
			"runtime", a.Runtime, "version", a.Version, "error", err)
		return Result{Artifact: a, Skipped: true, SkipReason: fmt.Sprintf("invalid sigstore bundle: %v", err)}
	}

	if err := v.verifyBundle(b, a.Path); err != nil {
		slog.Warn("sigstore signature verification failed",
			"runtime", a.Runtime, "version", a.Version, "error", err)
		return Result{Artifact: a, Skipped: true, SkipReason: fmt.Sprintf("verification failed: %v", err)}
	}

	slog.Info("sigstore signature verified", "runtime", a.Runtime, "version", a.Version)
	return Result{Artifact: a, Verified: true}
}

func (v *SigstoreVerifier) getTrustedRoot() (*root.LiveTrustedRoot, error) {
	v.trustedRootOnce.Do(func() {
		v.trustedRoot, v.trustedRootErr = root.NewLiveTrustedRoot(tuf.DefaultOptions())
	})
	return v.trustedRoot, v.trustedRootErr
}

// verifyBundle verifies a parsed sigstore bundle binds to the artifact at
// artifactPath and was signed by a GitHub Actions workflow matching the
// configured identity pattern.
func (v *SigstoreVerifier) verifyBundle(b *bundle.Bundle, artifactPath string) error {
	trustedRoot, err := v.getTrustedRoot()
	if err != nil {
		return fmt.Errorf("fetch trusted root: %w", err)
	}

	verifier, err := sgverify.NewVerifier(
		trustedRoot,
		sgverify.WithSignedCertificateTimestamps(1),
		sgverify.WithTransparencyLog(1),
		sgverify.WithIntegratedTimestamps(1),
	)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	certIdentity, err := sgverify.NewShortCertificateIdentity(
		githubActionsOIDCIssuer, "", "", v.identitySANRegex,
	)
	if err != nil {
		return fmt.Errorf("create certificate identity: %w", err)
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	_, err = verifier.Verify(b, sgverify.NewPolicy(
		sgverify.WithArtifact(f),
		sgverify.WithCertificateIdentity(certIdentity),
	))
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}
