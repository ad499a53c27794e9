// Package script loads and runs `provider.star` script providers: a
// Starlark sandbox evaluated in two phases (analysis, then execution),
// with permission-scoped filesystem/network/exec access and bounded
// resource limits, per spec.md §4.3.
package script

import (
	"path/filepath"
	"strings"

	vxerrors "github.com/loonghao/vx/internal/errors"
)

// Permissions is a script's declarative sandbox manifest: the top-level
// `permissions = {fs: [...], http: [...], exec: [...]}` assignment.
type Permissions struct {
	FS   []string
	HTTP []string
	Exec []string
}

// alwaysAllowedHosts are implicitly allowed for every script regardless of
// its declared permissions.http, per spec.md §4.3 "Implicit allowances".
var alwaysAllowedHosts = []string{"github.com", "api.github.com"}

// Sandbox enforces a script's Permissions against fs/http/exec calls made
// from its ctx object, plus the always-under-VX_HOME and
// one-shot-download-URL implicit allowances.
type Sandbox struct {
	provider    string
	permissions Permissions
	vxHome      string

	// oneShotURL is the URL most recently passed to AllowOneShotDownload,
	// implicitly allowed for the next http/download call only.
	oneShotURL string
}

// NewSandbox builds a Sandbox for a script provider named providerName,
// rooted at vxHome for the always-allowed-under-VX_HOME rule.
func NewSandbox(providerName string, perms Permissions, vxHome string) *Sandbox {
	return &Sandbox{provider: providerName, permissions: perms, vxHome: vxHome}
}

// CheckFS validates a filesystem path against permissions.fs (prefix
// match) and the always-allowed-under-VX_HOME rule.
func (s *Sandbox) CheckFS(function, path string) error {
	clean := filepath.Clean(path)

	if s.vxHome != "" && (clean == s.vxHome || strings.HasPrefix(clean, s.vxHome+string(filepath.Separator))) {
		return nil
	}

	for _, prefix := range s.permissions.FS {
		if clean == prefix || strings.HasPrefix(clean, filepath.Clean(prefix)+string(filepath.Separator)) {
			return nil
		}
	}

	return vxerrors.NewFsDeniedError(s.provider, function, path)
}

// CheckHTTP validates a host against permissions.http (suffix match), the
// implicit GitHub allowance, and the one-shot AllowOneShotDownload
// allowance.
func (s *Sandbox) CheckHTTP(function, rawURL string) error {
	host := hostOf(rawURL)

	for _, allowed := range alwaysAllowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}

	if s.oneShotURL != "" && rawURL == s.oneShotURL {
		s.oneShotURL = ""
		return nil
	}

	for _, allowed := range s.permissions.HTTP {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}

	return vxerrors.NewHTTPDeniedError(s.provider, function, host)
}

// CheckExec validates a command name against permissions.exec (exact
// match).
func (s *Sandbox) CheckExec(function, cmd string) error {
	for _, allowed := range s.permissions.Exec {
		if allowed == cmd {
			return nil
		}
	}
	return vxerrors.NewExecDeniedError(s.provider, function, cmd)
}

// AllowOneShotDownload records url as implicitly allowed for the next
// http/download call. Nothing calls it automatically: Provider.DownloadURL
// does not record its result here, so a download_url() result is allowed
// only when the caller passes it in.
func (s *Sandbox) AllowOneShotDownload(url string) {
	s.oneShotURL = url
}

func hostOf(rawURL string) string {
	rest := rawURL
	if idx := strings.Index(rest, "://"); idx != -1 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx != -1 {
		rest = rest[:idx]
	}
	if idx := strings.LastIndex(rest, "@"); idx != -1 {
		rest = rest[idx+1:]
	}
	if idx := strings.LastIndex(rest, ":"); idx != -1 {
		if _, ok := looksLikePort(rest[idx+1:]); ok {
			rest = rest[:idx]
		}
	}
	return rest
}

func looksLikePort(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return s, true
}
