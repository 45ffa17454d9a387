package inputs

import (
	"os"
	"path/filepath"
	"testing"

	"pteroupload/internal/plan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestReader_Precedence(t *testing.T) {
	env := fakeEnv(map[string]string{
		"INPUT_PANEL-HOST": "https://from-action",
		"PTERO_PANEL_HOST": "https://from-env",
		"PTERO_API_KEY":    "env-key",
		"INPUT_TARGET":     "  /plugins/  ",
	})

	r := NewReader(map[string]string{PanelHost: "https://from-flag"}, env)
	assert.Equal(t, "https://from-flag", r.Get(PanelHost))

	r = NewReader(nil, env)
	assert.Equal(t, "https://from-action", r.Get(PanelHost))
	assert.Equal(t, "env-key", r.Get(APIKey))
	assert.Equal(t, "/plugins/", r.Get(Target))
	assert.Empty(t, r.Get(Proxy))
}

func TestReader_Inputs(t *testing.T) {
	env := fakeEnv(map[string]string{
		"INPUT_PANEL-HOST":            "https://panel",
		"INPUT_API-KEY":               "key",
		"INPUT_SOURCES":               "build/*.jar\n\n  config/server.yml  \n",
		"INPUT_SERVER-IDS":            "abc\ndef",
		"INPUT_RESTART":               "true",
		"INPUT_DECOMPRESS-TARGET":     "True",
		"INPUT_FOLLOW-SYMBOLIC-LINKS": "yes",
	})

	got := NewReader(nil, env).Inputs()
	assert.Equal(t, plan.Inputs{
		PanelHost: "https://panel",
		APIKey:    "key",
		Sources:   []string{"build/*.jar", "config/server.yml"},
		ServerIDs: []string{"abc", "def"},
		Restart:   true,
	}, got)
}

func TestReader_InActions(t *testing.T) {
	assert.True(t, NewReader(nil, fakeEnv(map[string]string{"GITHUB_ACTIONS": "true"})).InActions())
	assert.False(t, NewReader(nil, fakeEnv(nil)).InActions())
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "PTERO_FOLLOW_SYMBOLIC_LINKS", EnvName(FollowSymlinks))
	assert.Equal(t, "PTERO_SERVER_ID", EnvName(ServerID))
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\n b \n\n"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PTERO_TEST_DOTENV=loaded\n"), 0600))
	t.Setenv("PTERO_TEST_DOTENV", "")
	os.Unsetenv("PTERO_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("PTERO_TEST_DOTENV"))
}
