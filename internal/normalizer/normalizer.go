package normalizer

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mcpportal/gateway/internal/api"
)

// Spawn is the platform-native invocation tuple a stdio carrier execs.
type Spawn struct {
	Path string
	Args []string
	Env  []string
}

// resolvable is the set of interpreter-style commands we resolve via PATH
// and fail fast on when missing, per SPEC_FULL.md §4.2.
var resolvable = map[string]bool{
	"node":    true,
	"python":  true,
	"python3": true,
}

// Normalize turns a ServerDecl's {command, args, env} into a Spawn ready for
// exec.Command. No shell is invoked. Paths containing "~" are expanded
// against the gateway's own home directory; env is merged onto the
// inherited environment with declared keys winning.
func Normalize(decl api.ServerDecl) (Spawn, error) {
	command := expandHome(decl.Command)
	args := make([]string, len(decl.Args))
	for i, a := range decl.Args {
		args[i] = expandHome(a)
	}

	if command == "npx" && runtime.GOOS == "windows" {
		command = "npx.cmd"
	}

	if resolvable[command] {
		resolved, err := exec.LookPath(command)
		if err != nil {
			return Spawn{}, api.NewError(api.KindConfigInvalid,
				fmt.Sprintf("command %q not found on PATH", command), err)
		}
		command = resolved
	} else if !filepath.IsAbs(command) {
		if resolved, err := exec.LookPath(command); err == nil {
			command = resolved
		}
		// A relative/bare command that isn't on PATH is left as-is; the
		// stdio carrier's exec.Command call will surface spawn_failed.
	}

	return Spawn{
		Path: command,
		Args: args,
		Env:  mergeEnv(os.Environ(), decl.Env),
	}, nil
}

// expandHome expands a leading "~" against the gateway's own home
// directory. It never expands "~user" forms.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// mergeEnv overlays declared key=value pairs onto the inherited
// environment; declared keys win on conflict.
func mergeEnv(inherited []string, declared map[string]string) []string {
	if len(declared) == 0 {
		return inherited
	}

	merged := make(map[string]string, len(inherited)+len(declared))
	for _, kv := range inherited {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range declared {
		merged[k] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}
