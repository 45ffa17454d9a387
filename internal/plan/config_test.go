package plan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInputs() Inputs {
	return Inputs{
		PanelHost: "https://panel.example.com/",
		APIKey:    "ptlc_test",
	}
}

func requireConfigError(t *testing.T, err error) *ConfigurationError {
	t.Helper()
	var cfgErr *ConfigurationError
	require.Error(t, err)
	require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %T: %v", err, err)
	return cfgErr
}

func TestBuild_RequiresSources(t *testing.T) {
	in := baseInputs()
	in.ServerID = "abc"

	_, err := Build(in, &FileConfig{})
	cfgErr := requireConfigError(t, err)
	assert.Contains(t, cfgErr.Error(), "Either source or sources must be defined")
}

func TestBuild_RequiresServers(t *testing.T) {
	in := baseInputs()
	in.Source = "build/app.zip"

	_, err := Build(in, nil)
	cfgErr := requireConfigError(t, err)
	assert.Contains(t, cfgErr.Error(), "Either server-id or server-ids must be defined")
}

func TestBuild_RequiresCredentials(t *testing.T) {
	tests := []struct {
		name  string
		in    Inputs
		field string
	}{
		{"missing host", Inputs{APIKey: "k", Source: "a", ServerID: "s"}, "panel-host"},
		{"missing key", Inputs{PanelHost: "h", Source: "a", ServerID: "s"}, "api-key"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.in, nil)
			cfgErr := requireConfigError(t, err)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestBuild_TargetsAloneAreEnough(t *testing.T) {
	in := baseInputs()
	in.ServerID = "abc"

	p, err := Build(in, &FileConfig{
		Targets: []Mapping{{Source: "plugin.jar", Target: "/plugins/"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []Mapping{{Source: "plugin.jar", Target: "/plugins/"}}, p.Mappings)
}

func TestBuild_EmptyTargetSourceRejected(t *testing.T) {
	in := baseInputs()
	in.ServerID = "abc"

	_, err := Build(in, &FileConfig{Targets: []Mapping{{Source: "  ", Target: "/x"}}})
	cfgErr := requireConfigError(t, err)
	assert.Equal(t, "targets", cfgErr.Field)
}

func TestBuild_Precedence(t *testing.T) {
	file := &FileConfig{
		Source:  "file-source.zip",
		Sources: []string{"file-a", "file-b"},
		Target:  "/file-target/",
		Server:  "file-server",
		Servers: []string{"file-s1", "file-s2"},
	}

	t.Run("inputs win", func(t *testing.T) {
		in := baseInputs()
		in.Sources = []string{"in-a"}
		in.Target = "/in-target/"
		in.ServerIDs = []string{"in-s1"}

		p, err := Build(in, file)
		require.NoError(t, err)
		assert.Equal(t, []Mapping{{Source: "in-a", Target: "/in-target/"}}, p.Mappings)
		assert.Equal(t, []string{"in-s1"}, p.ServerIDs)
	})

	t.Run("file fills gaps", func(t *testing.T) {
		p, err := Build(baseInputs(), file)
		require.NoError(t, err)
		assert.Equal(t, []Mapping{
			{Source: "file-a", Target: "/file-target/"},
			{Source: "file-b", Target: "/file-target/"},
		}, p.Mappings)
		assert.Equal(t, []string{"file-s1", "file-s2"}, p.ServerIDs)
	})

	t.Run("singular merged when plural empty", func(t *testing.T) {
		in := baseInputs()
		in.Source = "single.zip"
		in.ServerID = "single-server"

		p, err := Build(in, &FileConfig{})
		require.NoError(t, err)
		assert.Equal(t, []Mapping{{Source: "single.zip"}}, p.Mappings)
		assert.Equal(t, []string{"single-server"}, p.ServerIDs)
	})

	t.Run("plural beats singular", func(t *testing.T) {
		in := baseInputs()
		in.Source = "ignored.zip"
		in.Sources = []string{"used.zip"}
		in.ServerID = "ignored"
		in.ServerIDs = []string{"used"}

		p, err := Build(in, nil)
		require.NoError(t, err)
		assert.Equal(t, "used.zip", p.Mappings[0].Source)
		assert.Equal(t, []string{"used"}, p.ServerIDs)
	})
}

func TestBuild_MappingOrder(t *testing.T) {
	in := baseInputs()
	in.Sources = []string{"a", "b"}
	in.Target = "/t/"
	in.ServerIDs = []string{"s1", "s2", "s1", ""}

	p, err := Build(in, &FileConfig{Targets: []Mapping{{Source: "c", Target: "/c.txt"}}})
	require.NoError(t, err)

	assert.Equal(t, []Mapping{
		{Source: "a", Target: "/t/"},
		{Source: "b", Target: "/t/"},
		{Source: "c", Target: "/c.txt"},
	}, p.Mappings)
	assert.Equal(t, []string{"s1", "s2"}, p.ServerIDs)
	assert.Equal(t, "https://panel.example.com", p.PanelHost)
}

func TestBuild_FlagsAndProxy(t *testing.T) {
	in := baseInputs()
	in.Source = "a"
	in.ServerID = "s"
	in.Restart = true
	in.DecompressTarget = true
	in.FollowSymlinks = true
	in.Proxy = "user:secret@proxy.local:3128"

	p, err := Build(in, nil)
	require.NoError(t, err)
	assert.True(t, p.Restart)
	assert.True(t, p.DecompressTarget)
	assert.True(t, p.FollowSymlinks)
	require.NotNil(t, p.Proxy)
	assert.Equal(t, "proxy.local:3128", p.Proxy.Address())

	in.Proxy = "no-at-sign"
	_, err = Build(in, nil)
	requireConfigError(t, err)
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is empty config", func(t *testing.T) {
		cfg, err := LoadFileConfig(filepath.Join(dir, "absent.json"))
		require.NoError(t, err)
		assert.Equal(t, &FileConfig{}, cfg)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, ConfigBaseName+".json")
		body := `{"sources":["a.zip"],"target":"/srv/","targets":[{"source":"b","target":"/b"}],"servers":["s1"]}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		cfg, err := LoadFileConfig(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.zip"}, cfg.Sources)
		assert.Equal(t, "/srv/", cfg.Target)
		assert.Equal(t, []Mapping{{Source: "b", Target: "/b"}}, cfg.Targets)
		assert.Equal(t, []string{"s1"}, cfg.Servers)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		body := "source: app.zip\nserver: s9\ntargets:\n  - source: x\n    target: /y/\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		cfg, err := LoadFileConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "app.zip", cfg.Source)
		assert.Equal(t, "s9", cfg.Server)
		assert.Equal(t, []Mapping{{Source: "x", Target: "/y/"}}, cfg.Targets)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		_, err := LoadFileConfig(path)
		requireConfigError(t, err)
	})
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", FindConfigFile(dir))

	yamlPath := filepath.Join(dir, ConfigBaseName+".yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("source: a\n"), 0644))
	assert.Equal(t, yamlPath, FindConfigFile(dir))

	jsonPath := filepath.Join(dir, ConfigBaseName+".json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{}`), 0644))
	assert.Equal(t, jsonPath, FindConfigFile(dir))
}
