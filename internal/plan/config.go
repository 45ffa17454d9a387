package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pteroupload/pkg/fileutil"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigBaseName is the well-known config file name, without extension,
	// looked up in the working directory.
	ConfigBaseName = ".pterodactyl-upload"
)

// ConfigExtensions lists accepted config file extensions in lookup order.
var ConfigExtensions = []string{".json", ".yaml", ".yml"}

// FindConfigFile returns the first config file present in dir, or "" if none.
func FindConfigFile(dir string) string {
	return fileutil.SearchPathsOptional(fileutil.ConfigPaths(dir, ConfigBaseName, ConfigExtensions...))
}

// LoadFileConfig reads the declarative config file at path.
// A missing file (or an empty path) is treated as an empty config.
func LoadFileConfig(path string) (*FileConfig, error) {
	config := &FileConfig{}
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, configError("config", "failed to parse YAML config %s: %v", path, err)
		}
	default:
		if len(strings.TrimSpace(string(data))) == 0 {
			return config, nil
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, configError("config", "failed to parse JSON config %s: %v", path, err)
		}
	}

	return config, nil
}

// Build merges run inputs over the config file and validates the result.
//
// A non-empty input wins over the matching config file field. A singular
// source or server is used only when the plural list is empty.
func Build(in Inputs, file *FileConfig) (*Plan, error) {
	if file == nil {
		file = &FileConfig{}
	}

	if in.PanelHost == "" {
		return nil, configError("panel-host", "input required and not supplied")
	}
	if in.APIKey == "" {
		return nil, configError("api-key", "input required and not supplied")
	}

	source := firstNonEmpty(in.Source, file.Source)
	sources := firstNonEmptyList(in.Sources, file.Sources)
	target := firstNonEmpty(in.Target, file.Target)
	serverID := firstNonEmpty(in.ServerID, file.Server)
	serverIDs := firstNonEmptyList(in.ServerIDs, file.Servers)
	targets := file.Targets

	if source == "" && len(sources) == 0 && len(targets) == 0 {
		return nil, configError("", "Either source or sources must be defined. Both are empty.")
	}
	if serverID == "" && len(serverIDs) == 0 {
		return nil, configError("", "Either server-id or server-ids must be defined. Both are empty.")
	}

	if source != "" && len(sources) == 0 {
		sources = []string{source}
	}
	if serverID != "" && len(serverIDs) == 0 {
		serverIDs = []string{serverID}
	}

	mappings := make([]Mapping, 0, len(sources)+len(targets))
	for _, src := range sources {
		if src == "" {
			continue
		}
		mappings = append(mappings, Mapping{Source: src, Target: target})
	}
	for i, t := range targets {
		if strings.TrimSpace(t.Source) == "" {
			return nil, configError("targets", "entry %d has an empty source", i)
		}
		mappings = append(mappings, Mapping{Source: t.Source, Target: t.Target})
	}
	if len(mappings) == 0 {
		return nil, configError("", "Either source or sources must be defined. Both are empty.")
	}

	servers := dedupe(serverIDs)
	if len(servers) == 0 {
		return nil, configError("", "Either server-id or server-ids must be defined. Both are empty.")
	}

	proxy, err := ParseProxy(in.Proxy)
	if err != nil {
		return nil, err
	}

	return &Plan{
		PanelHost:        strings.TrimRight(in.PanelHost, "/"),
		APIKey:           in.APIKey,
		Proxy:            proxy,
		ServerIDs:        servers,
		Mappings:         mappings,
		Restart:          in.Restart,
		DecompressTarget: in.DecompressTarget,
		FollowSymlinks:   in.FollowSymlinks,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptyList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

// dedupe drops blanks and repeated IDs, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
