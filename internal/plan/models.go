package plan

// Plan is the validated configuration for one deployment run.
// It is built once by Build and treated as read-only afterwards.
type Plan struct {
	PanelHost        string
	APIKey           string
	Proxy            *Proxy // nil when no proxy is configured
	ServerIDs        []string
	Mappings         []Mapping
	Restart          bool
	DecompressTarget bool
	FollowSymlinks   bool
}

// Mapping is one declared transfer rule.
//
// Target ending in "/" names a remote directory; the remote file name is then
// taken from each resolved source. Any other Target is the exact remote path.
type Mapping struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Proxy is a credentialed HTTP(S) proxy parsed from "user:pass@host:port".
type Proxy struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Inputs holds the run inputs as read from flags or the CI environment.
// Empty values mean "not provided".
type Inputs struct {
	PanelHost        string
	APIKey           string
	Source           string
	Sources          []string
	Target           string
	ServerID         string
	ServerIDs        []string
	Restart          bool
	Proxy            string
	DecompressTarget bool
	FollowSymlinks   bool
}

// FileConfig is the on-disk declarative config file.
type FileConfig struct {
	Source  string    `json:"source" yaml:"source"`
	Sources []string  `json:"sources" yaml:"sources"`
	Target  string    `json:"target" yaml:"target"`
	Targets []Mapping `json:"targets" yaml:"targets"`
	Server  string    `json:"server" yaml:"server"`
	Servers []string  `json:"servers" yaml:"servers"`
}
