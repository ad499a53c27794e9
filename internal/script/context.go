package script

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Paths is the subset of internal/path's resolved layout a script needs,
// passed in rather than depending on that package directly so this package
// stays leaf-level.
type Paths struct {
	VXHome    string
	StoreDir  string
	CacheDir  string
	InstallDir func(name, version string) string
}

// HostHooks are the side-effecting callbacks a ctx object dispatches to;
// Runner executes ctx.execute(), Logger receives ctx.log(), and Progress
// receives ctx.progress().
type HostHooks struct {
	HTTPClient *http.Client
	Runner     CommandRunner
	Logger     func(level, msg string)
	Progress   func(msg string)
}

// CommandRunner executes an external command on behalf of ctx.execute.
type CommandRunner interface {
	Run(cmd string, args []string) (stdout, stderr string, exitCode int, err error)
}

// NewContext builds the Starlark `ctx` object injected into every script
// function, enforcing sb against every fs/http/exec member call.
func NewContext(providerName string, sb *Sandbox, paths Paths, env map[string]string, hooks HostHooks, function *string) *starlarkstruct.Struct {
	currentFn := func() string {
		if function == nil {
			return ""
		}
		return *function
	}

	platform := starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"os":   starlark.String(osName()),
		"arch": starlark.String(archName()),
	})

	envDict := starlark.NewDict(len(env))
	for k, v := range env {
		_ = envDict.SetKey(starlark.String(k), starlark.String(v))
	}
	envDict.Freeze()

	pathsStruct := starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"vx_home":    starlark.String(paths.VXHome),
		"store_dir":  starlark.String(paths.StoreDir),
		"cache_dir":  starlark.String(paths.CacheDir),
		"install_dir": starlark.NewBuiltin("install_dir", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name, version string
			if err := starlark.UnpackArgs("install_dir", args, kwargs, "name", &name, "version", &version); err != nil {
				return nil, err
			}
			return starlark.String(paths.InstallDir(name, version)), nil
		}),
	})

	fs := newFSModule(providerName, sb, currentFn)
	httpMod := newHTTPModule(providerName, sb, currentFn, hooks.HTTPClient)

	members := starlark.StringDict{
		"platform": platform,
		"env":      envDict,
		"paths":    pathsStruct,
		"fs":       fs,
		"http":     httpMod,
		"execute": starlark.NewBuiltin("execute", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var cmd string
			var argList *starlark.List
			if err := starlark.UnpackArgs("execute", args, kwargs, "cmd", &cmd, "args?", &argList); err != nil {
				return nil, err
			}
			if err := sb.CheckExec(currentFn(), cmd); err != nil {
				return nil, err
			}
			var cmdArgs []string
			if argList != nil {
				for i := 0; i < argList.Len(); i++ {
					s, ok := starlark.AsString(argList.Index(i))
					if !ok {
						return nil, fmt.Errorf("execute: args must be strings")
					}
					cmdArgs = append(cmdArgs, s)
				}
			}
			if hooks.Runner == nil {
				return nil, fmt.Errorf("execute: no command runner configured")
			}
			stdout, stderr, code, err := hooks.Runner.Run(cmd, cmdArgs)
			success := err == nil && code == 0
			return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
				"success":   starlark.Bool(success),
				"stdout":    starlark.String(stdout),
				"stderr":    starlark.String(stderr),
				"exit_code": starlark.MakeInt(code),
			}), nil
		}),
		"progress": starlark.NewBuiltin("progress", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var msg string
			if err := starlark.UnpackArgs("progress", args, kwargs, "msg", &msg); err != nil {
				return nil, err
			}
			if hooks.Progress != nil {
				hooks.Progress(msg)
			}
			return starlark.None, nil
		}),
		"log": starlark.NewBuiltin("log", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var level, msg string
			if err := starlark.UnpackArgs("log", args, kwargs, "level", &level, "msg", &msg); err != nil {
				return nil, err
			}
			if hooks.Logger != nil {
				hooks.Logger(level, msg)
			}
			return starlark.None, nil
		}),
	}

	return starlarkstruct.FromStringDict(starlarkstruct.Default, members)
}

func newFSModule(providerName string, sb *Sandbox, currentFn func() string) *starlarkstruct.Struct {
	check := func(path string) error { return sb.CheckFS(currentFn(), path) }

	builtin := func(name string, fn func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)) starlark.Value {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			return fn(args, kwargs)
		})
	}

	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"exists": builtin("exists", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var path string
			if err := starlark.UnpackArgs("exists", args, kwargs, "path", &path); err != nil {
				return nil, err
			}
			if err := check(path); err != nil {
				return nil, err
			}
			_, err := os.Stat(path)
			return starlark.Bool(err == nil), nil
		}),
		"mkdir": builtin("mkdir", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var path string
			if err := starlark.UnpackArgs("mkdir", args, kwargs, "path", &path); err != nil {
				return nil, err
			}
			if err := check(path); err != nil {
				return nil, err
			}
			if err := os.MkdirAll(path, 0755); err != nil {
				return nil, err
			}
			return starlark.None, nil
		}),
		"remove": builtin("remove", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var path string
			if err := starlark.UnpackArgs("remove", args, kwargs, "path", &path); err != nil {
				return nil, err
			}
			if err := check(path); err != nil {
				return nil, err
			}
			if err := os.RemoveAll(path); err != nil {
				return nil, err
			}
			return starlark.None, nil
		}),
		"list_dir": builtin("list_dir", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var path string
			if err := starlark.UnpackArgs("list_dir", args, kwargs, "path", &path); err != nil {
				return nil, err
			}
			if err := check(path); err != nil {
				return nil, err
			}
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			sort.Strings(names)
			var vals []starlark.Value
			for _, n := range names {
				vals = append(vals, starlark.String(n))
			}
			return starlark.NewList(vals), nil
		}),
		"glob": builtin("glob", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var pattern string
			if err := starlark.UnpackArgs("glob", args, kwargs, "pattern", &pattern); err != nil {
				return nil, err
			}
			if err := check(pattern); err != nil {
				return nil, err
			}
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, err
			}
			var vals []starlark.Value
			for _, m := range matches {
				vals = append(vals, starlark.String(m))
			}
			return starlark.NewList(vals), nil
		}),
		"read": builtin("read", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var path string
			if err := starlark.UnpackArgs("read", args, kwargs, "path", &path); err != nil {
				return nil, err
			}
			if err := check(path); err != nil {
				return nil, err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return starlark.String(data), nil
		}),
		"write": builtin("write", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var path, content string
			if err := starlark.UnpackArgs("write", args, kwargs, "path", &path, "content", &content); err != nil {
				return nil, err
			}
			if err := check(path); err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return nil, err
			}
			return starlark.None, nil
		}),
		"copy": builtin("copy", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var src, dst string
			if err := starlark.UnpackArgs("copy", args, kwargs, "src", &src, "dst", &dst); err != nil {
				return nil, err
			}
			if err := check(src); err != nil {
				return nil, err
			}
			if err := check(dst); err != nil {
				return nil, err
			}
			if err := copyFile(src, dst); err != nil {
				return nil, err
			}
			return starlark.None, nil
		}),
		"rename": builtin("rename", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var src, dst string
			if err := starlark.UnpackArgs("rename", args, kwargs, "src", &src, "dst", &dst); err != nil {
				return nil, err
			}
			if err := check(src); err != nil {
				return nil, err
			}
			if err := check(dst); err != nil {
				return nil, err
			}
			if err := os.Rename(src, dst); err != nil {
				return nil, err
			}
			return starlark.None, nil
		}),
		"basename": builtin("basename", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var path string
			if err := starlark.UnpackArgs("basename", args, kwargs, "path", &path); err != nil {
				return nil, err
			}
			return starlark.String(filepath.Base(path)), nil
		}),
		"dirname": builtin("dirname", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var path string
			if err := starlark.UnpackArgs("dirname", args, kwargs, "path", &path); err != nil {
				return nil, err
			}
			return starlark.String(filepath.Dir(path)), nil
		}),
		"join": builtin("join", func(args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			var parts []string
			for _, a := range args {
				s, ok := starlark.AsString(a)
				if !ok {
					return nil, fmt.Errorf("join: all arguments must be strings")
				}
				parts = append(parts, s)
			}
			return starlark.String(filepath.Join(parts...)), nil
		}),
	})
}

func newHTTPModule(providerName string, sb *Sandbox, currentFn func() string, client *http.Client) *starlarkstruct.Struct {
	if client == nil {
		client = http.DefaultClient
	}

	get := func(url string) (int, string, error) {
		resp, err := client.Get(url)
		if err != nil {
			return 0, "", err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, "", err
		}
		return resp.StatusCode, string(body), nil
	}

	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"get": starlark.NewBuiltin("get", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var url string
			if err := starlark.UnpackArgs("get", args, kwargs, "url", &url); err != nil {
				return nil, err
			}
			if err := sb.CheckHTTP(currentFn(), url); err != nil {
				return nil, err
			}
			status, body, err := get(url)
			if err != nil {
				return nil, err
			}
			return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
				"status": starlark.MakeInt(status),
				"body":   starlark.String(body),
			}), nil
		}),
		"get_json": starlark.NewBuiltin("get_json", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var url string
			if err := starlark.UnpackArgs("get_json", args, kwargs, "url", &url); err != nil {
				return nil, err
			}
			if err := sb.CheckHTTP(currentFn(), url); err != nil {
				return nil, err
			}
			_, body, err := get(url)
			if err != nil {
				return nil, err
			}
			return jsonToStarlark([]byte(body))
		}),
		"download": starlark.NewBuiltin("download", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var url, dest string
			if err := starlark.UnpackArgs("download", args, kwargs, "url", &url, "dest", &dest); err != nil {
				return nil, err
			}
			if err := sb.CheckHTTP(currentFn(), url); err != nil {
				return nil, err
			}
			if err := sb.CheckFS(currentFn(), dest); err != nil {
				return nil, err
			}
			resp, err := client.Get(url)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			out, err := os.Create(dest)
			if err != nil {
				return nil, err
			}
			defer out.Close()
			if _, err := io.Copy(out, resp.Body); err != nil {
				return nil, err
			}
			return starlark.String(dest), nil
		}),
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
