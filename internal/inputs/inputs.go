// Package inputs reads run inputs from command-line flags, GitHub Actions
// step inputs and PTERO_* environment variables, in that order.
package inputs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"pteroupload/internal/plan"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-githubactions"
)

// Input names, identical to the action's input names.
const (
	PanelHost        = "panel-host"
	APIKey           = "api-key"
	Source           = "source"
	Sources          = "sources"
	Target           = "target"
	ServerID         = "server-id"
	ServerIDs        = "server-ids"
	Restart          = "restart"
	Proxy            = "proxy"
	DecompressTarget = "decompress-target"
	FollowSymlinks   = "follow-symbolic-links"
)

// EnvPrefix prefixes the environment variable fallback of every input.
const EnvPrefix = "PTERO_"

// Reader resolves input values.
type Reader struct {
	flags  map[string]string
	getenv func(string) string
	action *githubactions.Action
}

// NewReader creates a reader. flags holds only the flags set explicitly on
// the command line; getenv defaults to os.Getenv.
func NewReader(flags map[string]string, getenv func(string) string) *Reader {
	if getenv == nil {
		getenv = os.Getenv
	}
	if flags == nil {
		flags = map[string]string{}
	}
	return &Reader{
		flags:  flags,
		getenv: getenv,
		action: githubactions.New(githubactions.WithGetenv(getenv)),
	}
}

// Action returns the GitHub Actions handle used for step inputs, so callers
// can emit workflow commands through the same environment.
func (r *Reader) Action() *githubactions.Action {
	return r.action
}

// InActions reports whether the process runs as a GitHub Actions step.
func (r *Reader) InActions() bool {
	return r.getenv("GITHUB_ACTIONS") == "true"
}

// Get returns the trimmed value of name, or "" when unset everywhere.
func (r *Reader) Get(name string) string {
	if v, ok := r.flags[name]; ok {
		return strings.TrimSpace(v)
	}
	if v := r.action.GetInput(name); v != "" {
		return v
	}
	return strings.TrimSpace(r.getenv(EnvName(name)))
}

// List splits a multiline input into trimmed, non-blank lines.
func (r *Reader) List(name string) []string {
	return SplitLines(r.Get(name))
}

// Bool is true only for the literal value "true".
func (r *Reader) Bool(name string) bool {
	return r.Get(name) == "true"
}

// Inputs collects every run input.
func (r *Reader) Inputs() plan.Inputs {
	return plan.Inputs{
		PanelHost:        r.Get(PanelHost),
		APIKey:           r.Get(APIKey),
		Source:           r.Get(Source),
		Sources:          r.List(Sources),
		Target:           r.Get(Target),
		ServerID:         r.Get(ServerID),
		ServerIDs:        r.List(ServerIDs),
		Restart:          r.Bool(Restart),
		Proxy:            r.Get(Proxy),
		DecompressTarget: r.Bool(DecompressTarget),
		FollowSymlinks:   r.Bool(FollowSymlinks),
	}
}

// EnvName returns the environment variable consulted for name,
// e.g. PTERO_PANEL_HOST for panel-host.
func EnvName(name string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// SplitLines splits s on newlines, dropping blank lines.
func SplitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
